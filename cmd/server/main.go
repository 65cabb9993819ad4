package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/codecloudhq/cloud-agents/internal/auth"
	"github.com/codecloudhq/cloud-agents/internal/chat"
	"github.com/codecloudhq/cloud-agents/internal/config"
	"github.com/codecloudhq/cloud-agents/internal/database"
	"github.com/codecloudhq/cloud-agents/internal/handler"
	"github.com/codecloudhq/cloud-agents/internal/notify"
	"github.com/codecloudhq/cloud-agents/internal/queue"
	"github.com/codecloudhq/cloud-agents/internal/repository"
	"github.com/codecloudhq/cloud-agents/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.InitSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Redis is optional. Without it the rate limiter fails open and token
	// revocation falls back to process memory, which is fine for a single
	// instance but loses revocations on restart.
	rdb := config.NewRedisClient()
	var store auth.TokenStore = auth.NewMemoryStore()
	if rdb != nil {
		store = auth.NewRedisStore(rdb, "revoked")
	} else {
		log.Println("redis unavailable, using in-memory token store")
	}

	issuer := auth.NewIssuer(
		cfg.JWTSecret, cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
		store,
	)

	users := repository.NewUserRepo(db)
	invites := repository.NewInviteRepo(db)
	chats := repository.NewChatRepo(db)
	costs := repository.NewCostRepo(db)
	settings := repository.NewSettingsRepo(db)

	var providers []chat.Provider
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, chat.NewAnthropic(cfg.AnthropicAPIKey))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, chat.NewOpenAI(cfg.OpenAIAPIKey))
	}
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, chat.NewGemini(cfg.GeminiAPIKey))
	}
	if len(providers) == 0 {
		log.Println("no provider API keys configured, chat sends will fail")
	}
	orchestrator := chat.NewOrchestrator(chats, costs, invites, providers...)

	relay := notify.NewRelay(os.Getenv("SLACK_BOT_TOKEN"), notify.ConfigFromEnv())
	go queue.StartNotificationConsumer(relay)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterHealth(e, handler.NewHealthHandler(db))
	router.RegisterAuth(e, handler.NewAuthHandler(users, issuer), issuer)
	router.RegisterUsers(e, handler.NewUserHandler(users, cfg.BcryptCost), issuer)
	router.RegisterDemo(e, handler.NewDemoHandler(invites, issuer, cfg.PublicBaseURL, cfg.BcryptCost), issuer, rdb, cfg.CronSecret)
	router.RegisterChat(e, handler.NewChatHandler(orchestrator), issuer)
	router.RegisterBilling(e, handler.NewBillingHandler(costs), issuer)
	router.RegisterSettings(e, handler.NewSettingsHandler(settings), issuer)
	router.RegisterSupervisor(e, handler.NewSupervisorHandler(relay), issuer)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
