package service

import (
	"testing"

	"go-amana-aap/internal/model"
	"go-amana-aap/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAAPService(db *gorm.DB) AAPService {
	userRepo := repository.NewUserRepo(db)
	aapRepo := repository.NewAAPRepo(db)
	ledger := NewCreditLedger(db)
	lookup := NewRetailerLookup(userRepo)
	return NewAAPService(aapRepo, lookup, ledger, db, nil)
}

func TestLifecycle_EndToEnd(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	agent := seedAgent(t, db, "+2348200000001")
	retailer := seedRetailer(t, db, "+2348200000002", 72, 30000)
	aap := seedDraft(t, db, agent, 25000)

	// link: score 72, term 7 -> 8 * 0.75 = 6%, amount 1500, total 26500
	linked, err := svc.LinkRetailer(aap.ID, agent.ID, retailer.Phone, 7)
	require.NoError(t, err)
	require.Equal(t, model.StatusAwaitingRetailerConfirm, linked.Status)
	require.NotNil(t, linked.RetailerID)
	require.Equal(t, retailer.ID, *linked.RetailerID)
	require.True(t, linked.MarkupPercentage.Equal(decimal.NewFromInt(6)))
	require.True(t, linked.MarkupAmount.Equal(decimal.NewFromInt(1500)))
	require.True(t, linked.TotalRetailerCost.Equal(decimal.NewFromInt(26500)))
	require.True(t, linked.CreditReserved)

	fresh := reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.Equal(decimal.NewFromInt(26500)))

	// confirm, approve, deliver
	confirmed, err := svc.ConfirmRetailer(aap.ID, retailer.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPendingAdminApproval, confirmed.Status)

	admin := &model.User{Phone: "+2348200000003", FullName: "Admin", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, admin.SetPassword("secret123"))
	require.NoError(t, db.Create(admin).Error)

	approved, err := svc.Approve(aap.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFundDisbursed, approved.Status)

	delivered, code, err := svc.MarkDelivered(aap.ID, agent.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDelivered, delivered.Status)
	require.Len(t, code, 6)

	// wrong code leaves the AAP delivered, reservation intact
	_, err = svc.RedeemPickupCode(aap.ID, retailer.ID, "WRONG1")
	require.ErrorIs(t, err, ErrInvalidPickupCode)

	var mid model.AAP
	require.NoError(t, db.First(&mid, "id = ?", aap.ID).Error)
	require.Equal(t, model.StatusDelivered, mid.Status)
	require.True(t, mid.CreditReserved)

	// right code: custody passes, reservation released
	received, err := svc.RedeemPickupCode(aap.ID, retailer.ID, code)
	require.NoError(t, err)
	require.Equal(t, model.StatusReceived, received.Status)
	require.Nil(t, received.PickupCode)
	require.False(t, received.CreditReserved)

	fresh = reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.IsZero())

	// the consumed code cannot be replayed
	_, err = svc.RedeemPickupCode(aap.ID, retailer.ID, code)
	require.ErrorIs(t, err, ErrInvalidPickupCode)

	// settlement
	completed, err := svc.Complete(aap.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, completed.Status)
	require.True(t, completed.Status.IsTerminal())
}

func TestLink_InsufficientCredit(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	agent := seedAgent(t, db, "+2348200000011")
	// score 30, term 14 -> 15%, total 28750; only 20000 available
	retailer := seedRetailer(t, db, "+2348200000012", 30, 20000)
	aap := seedDraft(t, db, agent, 25000)

	_, err := svc.LinkRetailer(aap.ID, agent.ID, retailer.Phone, 14)
	require.ErrorIs(t, err, ErrInsufficientCredit)

	// no partial link: AAP stays a draft with nothing recorded
	var fresh model.AAP
	require.NoError(t, db.First(&fresh, "id = ?", aap.ID).Error)
	require.Equal(t, model.StatusDraft, fresh.Status)
	require.Nil(t, fresh.RetailerID)
	require.False(t, fresh.CreditReserved)
	require.True(t, fresh.TotalRetailerCost.IsZero())

	freshRetailer := reloadUser(t, db, retailer)
	require.True(t, freshRetailer.UsedCredit.IsZero())
}

func TestLink_SelfDealing(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	retailer := seedRetailer(t, db, "+2348200000021", 80, 50000)
	aap := seedDraft(t, db, retailer, 10000)

	// the acting agent resolves themselves as the retailer
	_, err := svc.LinkRetailer(aap.ID, retailer.ID, retailer.Phone, 7)
	require.ErrorIs(t, err, ErrSelfDealing)

	fresh := reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.IsZero(), "self-dealing must not reserve anything")
}

func TestLink_InvalidTermAndUnknownPhone(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	agent := seedAgent(t, db, "+2348200000031")
	retailer := seedRetailer(t, db, "+2348200000032", 72, 50000)
	aap := seedDraft(t, db, agent, 1000)

	_, err := svc.LinkRetailer(aap.ID, agent.ID, retailer.Phone, 5)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.LinkRetailer(aap.ID, agent.ID, "+2348999999999", 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIllegalTransition_LeavesStateUnchanged(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	agent := seedAgent(t, db, "+2348200000041")
	aap := seedDraft(t, db, agent, 5000)

	_, _, err := svc.MarkDelivered(aap.ID, agent.ID)
	require.ErrorIs(t, err, ErrIllegalTransition)

	var fresh model.AAP
	require.NoError(t, db.First(&fresh, "id = ?", aap.ID).Error)
	require.Equal(t, model.StatusDraft, fresh.Status)
	require.Nil(t, fresh.PickupCode)
}

func TestDecline_ReleasesReservation(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	agent := seedAgent(t, db, "+2348200000051")
	retailer := seedRetailer(t, db, "+2348200000052", 85, 100000)
	admin := &model.User{Phone: "+2348200000053", FullName: "Admin", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, admin.SetPassword("secret123"))
	require.NoError(t, db.Create(admin).Error)

	aap := seedDraft(t, db, agent, 40000)

	linked, err := svc.LinkRetailer(aap.ID, agent.ID, retailer.Phone, 14)
	require.NoError(t, err)
	require.True(t, linked.CreditReserved)

	fresh := reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.Equal(linked.TotalRetailerCost))

	declined, err := svc.Decline(aap.ID, admin.ID, "retailer unreachable")
	require.NoError(t, err)
	require.Equal(t, model.StatusDeclined, declined.Status)
	require.False(t, declined.CreditReserved)

	fresh = reloadUser(t, db, retailer)
	require.True(t, fresh.UsedCredit.IsZero())

	// terminal: nothing moves it again
	_, err = svc.Decline(aap.ID, admin.ID, "again")
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestCreateDraft_Validation(t *testing.T) {
	db := testDB(t)
	svc := newAAPService(db)

	agent := seedAgent(t, db, "+2348200000061")

	bad := &model.AAP{
		ProductName:   "", // required
		Quantity:      1,
		PurchasePrice: decimal.NewFromInt(100),
	}
	err := svc.CreateDraft(bad, agent.ID)
	require.ErrorIs(t, err, ErrValidation)

	good := &model.AAP{
		ProductName:   "Cooking oil cartons",
		Quantity:      5,
		PurchasePrice: decimal.NewFromInt(18000),
	}
	require.NoError(t, svc.CreateDraft(good, agent.ID))
	require.Equal(t, model.StatusDraft, good.Status)
	require.Equal(t, agent.ID, good.AgentID)
}
