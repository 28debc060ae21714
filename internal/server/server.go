package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/raffleworks/rafflet/config"
	"github.com/raffleworks/rafflet/internal/allocation"
	"github.com/raffleworks/rafflet/internal/handlers"
	"github.com/raffleworks/rafflet/internal/ledger"
	"github.com/raffleworks/rafflet/internal/middleware"
	"github.com/raffleworks/rafflet/internal/payments"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	raffleCfg, err := config.LoadRaffleConfig()
	if err != nil {
		return fmt.Errorf("failed to load raffle config: %v", err)
	}

	xenditCfg, err := config.LoadXenditConfig()
	if err != nil {
		return fmt.Errorf("failed to load xendit config: %v", err)
	}
	xenditClient, err := config.InitXenditClient(xenditCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize xendit client: %v", err)
	}
	provider := payments.NewXenditProvider(xenditClient)

	// A failed store connection is logged, not fatal: the storefront keeps
	// serving pages and ticket issuance answers 500 until a restart.
	db, err := config.InitDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Error("database connection failed, ticket issuance unavailable")
		db = nil
	} else {
		logrus.Info("connected to database")
	}

	r := gin.Default()
	r.LoadHTMLGlob("web/templates/*.html")
	r.Static("/static", "./web/static")

	setupRoutes(r, db, raffleCfg, provider)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, raffleCfg *config.RaffleConfig, provider payments.Provider) {
	r.Use(middleware.PaymentsMiddleware(provider))

	if db != nil {
		allocator := allocation.NewService(ledger.NewStore(db))
		r.Use(middleware.DatabaseMiddleware(db))
		r.Use(middleware.RaffleMiddleware(raffleCfg, allocator))
	} else {
		r.Use(middleware.RaffleMiddleware(raffleCfg, nil))
	}

	r.GET("/", handlers.Home)
	r.GET("/buy-tickets-form", handlers.BuyTicketsForm)
	r.POST("/create-checkout-session", handlers.CreateCheckoutSession)
	r.GET("/success", handlers.Success)
	r.GET("/cancel", handlers.Cancel)
	r.GET("/tickets/:number/qr", handlers.TicketQR)
}
