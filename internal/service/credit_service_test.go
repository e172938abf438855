package service

import (
	"os"
	"sync"
	"testing"

	"go-amana-aap/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens the integration database or skips the test. These tests
// exercise real row locking, which sqlite/mocks cannot reproduce.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.AAP{}, &model.CreditEntry{}))

	// dedicated test database: wipe between tests
	require.NoError(t, db.Exec("DELETE FROM credit_entries").Error)
	require.NoError(t, db.Exec("DELETE FROM aaps").Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)

	return db
}

func seedRetailer(t *testing.T, db *gorm.DB, phone string, score int, limit int64) *model.User {
	t.Helper()

	retailer := &model.User{
		Phone:       phone,
		FullName:    "Test Retailer",
		Role:        model.RoleRetailer,
		IsActive:    true,
		AmanaScore:  score,
		CreditLimit: decimal.NewFromInt(limit),
		UsedCredit:  decimal.Zero,
	}
	require.NoError(t, retailer.SetPassword("secret123"))
	require.NoError(t, db.Create(retailer).Error)
	return retailer
}

func seedAgent(t *testing.T, db *gorm.DB, phone string) *model.User {
	t.Helper()

	agent := &model.User{
		Phone:    phone,
		FullName: "Test Agent",
		Role:     model.RoleAgent,
		IsActive: true,
	}
	require.NoError(t, agent.SetPassword("secret123"))
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func seedDraft(t *testing.T, db *gorm.DB, agent *model.User, price int64) *model.AAP {
	t.Helper()

	aap := &model.AAP{
		AgentID:        agent.ID,
		Status:         model.StatusDraft,
		ProductName:    "50kg rice bags",
		Description:    "Long grain parboiled rice",
		Quantity:       10,
		PurchasePrice:  decimal.NewFromInt(price),
		ProductPhotos:  []string{"https://cdn.example.com/photos/rice.jpg"},
		SellerName:     "Mama Nkechi Stores",
		SellerPhone:    "+2348011112222",
		SellerLocation: "Mile 12 Market, Lagos",
	}
	aap.CreatedBy = agent.ID.String()
	aap.UpdatedBy = agent.ID.String()
	require.NoError(t, db.Create(aap).Error)
	return aap
}

func reloadUser(t *testing.T, db *gorm.DB, u *model.User) *model.User {
	t.Helper()
	var fresh model.User
	require.NoError(t, db.First(&fresh, "id = ?", u.ID).Error)
	return &fresh
}

func TestReserve_ConcurrentOverspend(t *testing.T) {
	db := testDB(t)
	ledger := NewCreditLedger(db)

	agent := seedAgent(t, db, "+2348100000001")
	retailer := seedRetailer(t, db, "+2348100000002", 72, 100)

	aapA := seedDraft(t, db, agent, 60)
	aapB := seedDraft(t, db, agent, 60)

	amount := decimal.NewFromInt(60)
	results := make([]error, 2)
	var wg sync.WaitGroup

	for i, aap := range []*model.AAP{aapA, aapB} {
		wg.Add(1)
		go func(i int, aap *model.AAP) {
			defer wg.Done()
			results[i] = db.Transaction(func(tx *gorm.DB) error {
				return ledger.Reserve(tx, aap, retailer.ID, amount, agent.ID.String())
			})
		}(i, aap)
	}
	wg.Wait()

	// exactly one succeeds, the other hits the commit-time re-check
	var okCount, insufficientCount int
	for _, err := range results {
		if err == nil {
			okCount++
		} else {
			require.ErrorIs(t, err, ErrInsufficientCredit)
			insufficientCount++
		}
	}
	require.Equal(t, 1, okCount)
	require.Equal(t, 1, insufficientCount)

	fresh := reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.Equal(decimal.NewFromInt(60)),
		"used_credit must be 60, got %s", fresh.UsedCredit)
}

func TestReserve_RechecksAtCommit(t *testing.T) {
	db := testDB(t)
	ledger := NewCreditLedger(db)

	agent := seedAgent(t, db, "+2348100000011")
	retailer := seedRetailer(t, db, "+2348100000012", 50, 1000)
	aap := seedDraft(t, db, agent, 800)

	ok, available, err := ledger.CanReserve(retailer.ID, decimal.NewFromInt(800))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, available.Equal(decimal.NewFromInt(1000)))

	// someone else consumes the headroom between quote and commit
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", retailer.ID).
		Update("used_credit", decimal.NewFromInt(900)).Error)

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(tx, aap, retailer.ID, decimal.NewFromInt(800), agent.ID.String())
	})
	require.ErrorIs(t, err, ErrInsufficientCredit)

	fresh := reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.Equal(decimal.NewFromInt(900)))
}

func TestRelease_ExactlyOnce(t *testing.T) {
	db := testDB(t)
	ledger := NewCreditLedger(db)

	agent := seedAgent(t, db, "+2348100000021")
	retailer := seedRetailer(t, db, "+2348100000022", 72, 50000)
	aap := seedDraft(t, db, agent, 10000)

	total := decimal.NewFromInt(10600)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(tx, aap, retailer.ID, total, agent.ID.String())
	}))
	require.True(t, aap.CreditReserved)

	retailerID := retailer.ID
	aap.RetailerID = &retailerID
	aap.TotalRetailerCost = total

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(tx, aap, agent.ID.String(), "test release")
	}))
	require.False(t, aap.CreditReserved)

	// second release is a no-op, not a double refund
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(tx, aap, agent.ID.String(), "double release attempt")
	}))

	fresh := reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.IsZero(), "used_credit must be back to 0, got %s", fresh.UsedCredit)

	// audit trail: one RESERVE, one RELEASE
	var entries []model.CreditEntry
	require.NoError(t, db.Where("aap_id = ?", aap.ID).Order("created_at ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	require.Equal(t, model.CreditReserve, entries[0].Type)
	require.Equal(t, model.CreditRelease, entries[1].Type)
}
