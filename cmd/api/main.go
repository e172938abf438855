package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-amana-aap/internal/config"
	"go-amana-aap/internal/handler"
	"go-amana-aap/internal/middleware"
	"go-amana-aap/internal/model"
	"go-amana-aap/internal/repository"
	"go-amana-aap/internal/service"
	"go-amana-aap/internal/storage"
	"go-amana-aap/internal/ws"
	"go-amana-aap/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	// 2. Setup Database
	db := database.ConnectDB(cfg)
	db.AutoMigrate(&model.User{}, &model.AAP{}, &model.CreditEntry{})

	// 3. Seed default admin
	seedAdmin(db, cfg)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Photo store (optional; uploads 503 when the bucket is unset)
	var photoStore storage.PhotoStore
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCSPhotoStore(context.Background(), cfg.StorageBucket)
		if err != nil {
			log.Fatal("Failed to init photo store: ", err)
		}
		defer gcs.Close()
		photoStore = gcs
	} else {
		log.Println("Warning: STORAGE_BUCKET not set, photo uploads disabled")
	}

	// 6. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	aapRepo := repository.NewAAPRepo(db)
	creditEntryRepo := repository.NewCreditEntryRepo(db)

	ledger := service.NewCreditLedger(db)
	lookup := service.NewRetailerLookup(userRepo)
	aapService := service.NewAAPService(aapRepo, lookup, ledger, db, wsHub)
	authService := service.NewAuthService(userRepo)
	dashService := service.NewDashboardService(aapRepo, creditEntryRepo)

	aapHandler := handler.NewAAPHandler(aapService, photoStore)
	authHandler := handler.NewAuthHandler(authService)
	retailerHandler := handler.NewRetailerHandler(lookup, ledger)
	dashHandler := handler.NewDashboardHandler(dashService)

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Amana AAP Engine v1.0",
	})

	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/validate-token", authHandler.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Retailer lookup and pricing preview (agents only)
	protected.Get("/retailers/lookup", middleware.RequireRole(model.RoleAgent), retailerHandler.Lookup)
	protected.Get("/pricing/quote", aapHandler.Quote)

	// AAP lifecycle
	protected.Get("/aaps", aapHandler.List)
	protected.Get("/aaps/:id", aapHandler.Get)
	protected.Post("/aaps", middleware.RequireRole(model.RoleAgent), aapHandler.Create)
	protected.Put("/aaps/:id", middleware.RequireRole(model.RoleAgent), aapHandler.Update)
	protected.Post("/aaps/:id/photos", middleware.RequireRole(model.RoleAgent), aapHandler.UploadPhoto)
	protected.Post("/aaps/:id/link", middleware.RequireRole(model.RoleAgent), aapHandler.Link)
	protected.Post("/aaps/:id/confirm", middleware.RequireRole(model.RoleRetailer), aapHandler.Confirm)
	protected.Post("/aaps/:id/approve", middleware.RequireRole(model.RoleAdmin), aapHandler.Approve)
	protected.Post("/aaps/:id/deliver", middleware.RequireRole(model.RoleAgent), aapHandler.Deliver)
	protected.Post("/aaps/:id/redeem", middleware.RequireRole(model.RoleRetailer, model.RoleAgent), aapHandler.Redeem)
	protected.Post("/aaps/:id/complete", middleware.RequireRole(model.RoleAdmin), aapHandler.Complete)
	protected.Post("/aaps/:id/decline", middleware.RequireRole(model.RoleAdmin, model.RoleRetailer), aapHandler.Decline)

	// Credit history
	protected.Get("/aaps/:id/credit-entries", middleware.RequireRole(model.RoleAdmin), dashHandler.GetAAPCreditHistory)
	protected.Get("/credit/entries", middleware.RequireRole(model.RoleRetailer), dashHandler.GetMyCreditHistory)

	// Dashboard (admin overview)
	protected.Get("/dashboard/stats", middleware.RequireRole(model.RoleAdmin), dashHandler.GetStats)
	protected.Get("/dashboard/credit-movement", middleware.RequireRole(model.RoleAdmin), dashHandler.GetCreditMovement)

	// WebSocket route: live AAP transition feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedAdmin creates the default admin user if it doesn't exist
func seedAdmin(db *gorm.DB, cfg *config.Config) {
	userRepo := repository.NewUserRepo(db)

	if _, err := userRepo.FindByPhone(cfg.AdminPhone); err == nil {
		return
	}

	admin := &model.User{
		Phone:    cfg.AdminPhone,
		FullName: "Operations Admin",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword(cfg.AdminPassword); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}

	if err := userRepo.Create(admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
	} else {
		log.Printf("Admin user created: %s (ADMIN)", cfg.AdminPhone)
	}
}
