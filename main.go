package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"salgados/api"
	"salgados/bot"
	"salgados/config"
	"salgados/db"
	"salgados/docstore"
	"salgados/services"

	"github.com/google/uuid"
)

const (
	quoteSessionIdle    = 30 * time.Minute
	quoteSweepEvery     = 5 * time.Minute
	trackerInterval     = 3 * time.Second
	trackerSteps        = 40
	shutdownGracePeriod = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrate(cfg)
			return
		case "hash-password":
			runHashPassword(os.Args[2:])
			return
		}
	}

	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	// Set AUTO_MIGRATE=1 (or "true") to apply pending migrations on start.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(context.Background(), false); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store := docstore.New(db.Pool)

	settingsRepo := services.NewSettingsRepo(store)
	if err := settingsRepo.EnsureDefaults(ctx, services.DefaultShopSettings(cfg.Shop.Name, cfg.Shop.Timezone)); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	initial, err := settingsRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	cache := services.NewSettingsCache(initial)
	stopWatch := cache.Watch(ctx, store)
	defer stopWatch()
	settings := services.NewSettingsService(settingsRepo, cache)

	users := services.NewUserRepo(store)
	orders := services.NewOrderRepo(store)
	tracking := services.NewTrackingRepo(store)
	tracker := services.NewDeliveryTracker(tracking, trackerInterval, trackerSteps)
	defer tracker.Stop()

	geo := services.NewGeocoder(cfg.Geo.NominatimURL, cfg.Geo.OSRMURL, cfg.Geo.CountryCode, cfg.Geo.UserAgent, cfg.Geo.Timeout)
	checkout := services.NewCheckout(cache, geo, orders, uuid.NewString)

	quotes := services.NewQuoteSessions(quoteSessionIdle)
	go quotes.Run(ctx, quoteSweepEvery)

	notifiers := services.Notifiers{tracking}
	var telegram *bot.Bot
	if cfg.Telegram.Token != "" {
		telegram, err = bot.New(cfg.Telegram, bot.Deps{
			Pointers: services.NewOrderMessagePointers(store),
			Outbound: services.NewOutboundLog(store),
			Users:    users,
			Orders:   orders,
			Settings: cache,
		})
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		notifiers = append(notifiers, telegram)
	} else {
		log.Printf("bot: TELEGRAM_TOKEN not set, push notifications disabled")
	}

	workflow := services.NewOrderWorkflow(orders, notifiers, tracker, cache)
	if telegram != nil {
		telegram.SetWorkflow(workflow)
		go telegram.Start(ctx)
	}

	if cfg.Admin.PasswordHash == "" {
		log.Printf("admin: ADMIN_PASSWORD_HASH not set, admin endpoints are disabled")
	}
	handler := api.NewHandler(api.Deps{
		Settings: settings,
		Menu:     services.NewMenuRepo(store),
		Carts:    services.NewCartRepo(store),
		Users:    users,
		Orders:   orders,
		Workflow: workflow,
		Checkout: checkout,
		Tracking: tracking,
		Geo:      geo,
		Quotes:   quotes,
		Auth:     services.NewAdminAuth(cfg.Admin.PasswordHash, services.NewLoginThrottle()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("http: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}
	log.Printf("http: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// runHashPassword prints a bcrypt hash for ADMIN_PASSWORD_HASH. Without an
// argument a password is generated and printed too.
func runHashPassword(args []string) {
	plain := ""
	if len(args) > 0 {
		plain = args[0]
	} else {
		generated, err := services.GenerateAdminPassword()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate:", err)
			os.Exit(1)
		}
		plain = generated
		fmt.Println("password:", plain)
	}
	hash, err := services.HashAdminPassword(plain)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash:", err)
		os.Exit(1)
	}
	fmt.Println("ADMIN_PASSWORD_HASH=" + hash)
}
