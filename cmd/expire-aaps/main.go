// Command expire-aaps is the external expiry trigger: it finds purchases
// that have sat in a pre-disbursement state past the cutoff and drives them
// through the ordinary expire transition (which releases any credit held).
// The threshold is an operational policy flag, not engine behavior; run
// this from cron.
package main

import (
	"flag"
	"log"
	"time"

	"go-amana-aap/internal/config"
	"go-amana-aap/internal/model"
	"go-amana-aap/internal/repository"
	"go-amana-aap/internal/service"
	"go-amana-aap/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	olderThan := flag.Duration("older-than", 72*time.Hour, "expire AAPs not updated for this long")
	dryRun := flag.Bool("dry-run", false, "list candidates without expiring them")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Database
	db := database.ConnectDB(cfg)

	// 3. Wire the lifecycle service (no websocket hub for a one-shot sweep)
	userRepo := repository.NewUserRepo(db)
	aapRepo := repository.NewAAPRepo(db)
	ledger := service.NewCreditLedger(db)
	lookup := service.NewRetailerLookup(userRepo)
	aapService := service.NewAAPService(aapRepo, lookup, ledger, db, nil)

	// The sweep acts as the seeded admin so the audit trail has a real actor
	admin, err := userRepo.FindByPhone(cfg.AdminPhone)
	if err != nil {
		log.Fatalf("Admin user %s not found: %v", cfg.AdminPhone, err)
	}

	// 4. Collect candidates still waiting before disbursement
	cutoff := time.Now().Add(-*olderThan)
	stale, err := aapRepo.FindStaleBefore(cutoff, []model.Status{
		model.StatusDraft,
		model.StatusAwaitingRetailerConfirm,
		model.StatusPendingAdminApproval,
	})
	if err != nil {
		log.Fatalf("Failed to list stale AAPs: %v", err)
	}

	if len(stale) == 0 {
		log.Println("No stale AAPs to expire")
		return
	}

	// 5. Drive each through the normal expire transition
	expired := 0
	for _, aap := range stale {
		if *dryRun {
			log.Printf("would expire %s (%s, last updated %s)", aap.ID, aap.Status, aap.UpdatedAt.Format(time.RFC3339))
			continue
		}
		if _, err := aapService.Expire(aap.ID, admin.ID); err != nil {
			// A concurrent transition may have moved it on; skip, don't abort
			log.Printf("skip %s: %v", aap.ID, err)
			continue
		}
		expired++
	}

	log.Printf("Expired %d of %d stale AAPs (cutoff %s)", expired, len(stale), olderThan.String())
}
