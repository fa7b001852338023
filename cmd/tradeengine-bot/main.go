package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"tradeengine/internal/api"
	"tradeengine/internal/config"
	"tradeengine/internal/events"
	"tradeengine/internal/models"
	"tradeengine/internal/plugin"
	"tradeengine/internal/services/twofactor"
	"tradeengine/internal/store"
	"tradeengine/internal/tradeengine"
	"tradeengine/internal/transport/steam"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	log.Printf("╔════════════════════════════════════════════════════════════════╗\n")
	log.Printf("║                     trade engine bot daemon                      ║\n")
	log.Printf("║                                                                    ║\n")
	log.Printf("║ environment: %-54s ║\n", cfg.Environment)
	log.Printf("║ port:        %-54s ║\n", cfg.Port)
	log.Printf("╚════════════════════════════════════════════════════════════════╝\n\n")

	db, err := store.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	st := store.New(db)

	accounts, err := st.AllBotAccounts()
	if err != nil {
		log.Fatalf("failed to load bot accounts: %v", err)
	}
	if len(accounts) == 0 {
		log.Println("⚠️  no bot accounts configured; the API will start but nothing will trade")
	}

	bus := plugin.New()
	bus.SubscribeResults(func(botAccountID uint64, results []tradeengine.ParseTradeResult) {
		for _, r := range results {
			st.AppendAudit(models.AuditRecord{
				BotAccountID:      uint(botAccountID),
				TradeOfferID:      r.TradeOfferID,
				Result:            r.Result.String(),
				ReceivedItemTypes: joinItemTypes(r.ReceivedItemTypes),
			})
		}
	})

	locks := store.NewTradingLocks()
	steamClient := steam.NewClient(cfg.SteamAPIKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulers := make(map[uint]api.Scheduler, len(accounts))
	listeners := make([]*events.Listener, 0, len(accounts))

	for _, account := range accounts {
		scheduler := buildScheduler(account, cfg, st, bus, locks, steamClient)
		schedulers[account.ID] = scheduler

		if cfg.EventFeedURL != "" {
			listener := events.NewListener(cfg.EventFeedURL, scheduler)
			listeners = append(listeners, listener)
			go listener.Run(ctx)
		}

		log.Printf("✅ bot account %d (%s) wired up\n", account.ID, account.DisplayName)
	}

	r := gin.Default()
	r.Use(api.CORSMiddleware())
	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, st, schedulers)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("server starting on port %s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	log.Printf("🛑 shutdown signal received, closing down gracefully...\n")
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	cancel()
	for _, l := range listeners {
		l.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v\n", err)
	}
}

// joinItemTypes renders a received-types set as a stable comma-separated
// string for the audit row.
func joinItemTypes(types map[tradeengine.ItemType]struct{}) string {
	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func buildScheduler(account models.BotAccount, cfg *config.Config, st *store.Store, bus *plugin.Bus, locks *store.TradingLocks, steamClient *steam.Client) *tradeengine.Scheduler {
	policyConfig := config.PolicyFromAccount(account, cfg.DefaultPolicy)
	botAccountID := uint64(account.ID)

	policy := &tradeengine.DecisionPolicy{
		BotAccountID:  botAccountID,
		SelfSteamID64: account.SteamID64,
		Config:        policyConfig,
		Permissions:   st.Permissions(),
		HoldQuerier:   steamClient,
		Inventory:     steamClient,
	}

	handled := tradeengine.NewHandledOfferSet()
	pipeline := &tradeengine.OfferPipeline{
		BotAccountID:  botAccountID,
		Handled:       handled,
		Policy:        policy,
		Client:        steamClient,
		Plugins:       bus,
		RejectInvalid: policyConfig.RejectInvalidTrades,
	}

	confirmer := twofactor.NewConfirmer(account.SteamID64, account.IdentitySecret, "android:"+account.DisplayName)

	scheduler := &tradeengine.Scheduler{
		BotAccountID:     botAccountID,
		Handled:          handled,
		Pipeline:         pipeline,
		Client:           steamClient,
		Confirmer:        confirmer,
		HasAuthenticator: account.HasAuthenticator,
		Lock:             locks,
		Plugins:          bus,
		Config:           policyConfig,
	}

	if policyConfig.SendOnFarmingFinished {
		scheduler.OnFarmingFinished = func(botAccountID uint64) {
			log.Printf("tradeengine: bot %d finished farming this pass\n", botAccountID)
		}
	}

	return scheduler
}
