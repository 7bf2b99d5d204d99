package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/client"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open session store: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate session store: %v", err)
	}

	store, err := session.NewGormStore(db, seedSession(cfg))
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load session: %v", err)
	}
	fillFromConfig(store, cfg)
	store.Watch()
	defer store.Stop()

	branchID := func() string { return store.Get().BranchID }

	api := client.New(cfg.APIBaseURL, store, client.WithTimeout(cfg.RequestTimeout))
	engine := cart.NewEngine(api, cart.WithBranch(branchID))
	defer engine.FollowSession(store)()
	tracker := orders.NewTracker(api, branchID)
	menu := services.NewMenuCatalog(api, branchID)

	orderSync := services.NewOrderSync(tracker, cfg.PollInterval)
	defer orderSync.FollowSession(store)()

	bridge := realtime.NewBridge(cfg.RealtimeURL, store, orderSync.HandleEvent)
	stopScreens := services.WireScreens(engine, tracker, bridge)
	defer stopScreens()

	checkout := services.NewCheckoutService(engine, api, tracker, orderSync, store)

	orderSync.Start()
	defer orderSync.Stop()
	bridge.Start()
	defer bridge.Close()

	if cfg.OperatorPin == "" {
		utils.ErrorLogger.Warn("OPERATOR_PIN_HASH is not set, the terminal API is unprotected")
	}

	r := router.SetupRouter(router.Deps{
		Session:    store,
		Cart:       engine,
		Tracker:    tracker,
		Sync:       orderSync,
		Checkout:   checkout,
		Menu:       menu,
		Bridge:     bridge,
		PinHash:    cfg.OperatorPin,
		CORSOrigin: cfg.CORSOrigin,
		RateLimit:  cfg.RateLimit,
	})
	r.SetTrustedProxies([]string{"127.0.0.1"})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.InfoLogger.Println("Shutting down terminal agent")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server shutdown: %v", err)
	}
}

func seedSession(cfg *config.Config) models.SessionState {
	return models.SessionState{
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		TenantSlug:   cfg.TenantSlug,
		BranchID:     cfg.BranchID,
		RestaurantID: cfg.RestaurantID,
	}
}

// fillFromConfig completes a persisted session with configured values. Stored
// values win: they may hold rotated credentials or a branch chosen at the
// terminal.
func fillFromConfig(store session.Context, cfg *config.Config) {
	seed := seedSession(cfg)
	current := store.Get()
	if current.AccessToken != "" && current.TenantSlug != "" && current.BranchID != "" {
		return
	}

	err := store.Update(func(s *models.SessionState) {
		if s.AccessToken == "" {
			s.AccessToken, s.RefreshToken = seed.AccessToken, seed.RefreshToken
		}
		if s.TenantSlug == "" {
			s.TenantSlug = seed.TenantSlug
		}
		if s.BranchID == "" {
			s.BranchID = seed.BranchID
		}
		if s.RestaurantID == "" {
			s.RestaurantID = seed.RestaurantID
		}
	})
	if err != nil {
		utils.ErrorLogger.Errorf("Failed to seed session: %v", err)
	}
}
