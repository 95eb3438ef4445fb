// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/casamarket/wacampaigns-backend/internal/chatwoot"
	"github.com/casamarket/wacampaigns-backend/internal/evolution"
	"github.com/casamarket/wacampaigns-backend/internal/handler"
	"github.com/casamarket/wacampaigns-backend/internal/notify"
	"github.com/casamarket/wacampaigns-backend/internal/service"
	"github.com/casamarket/wacampaigns-backend/internal/store"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	st, err := openStore()
	if err != nil {
		sugar.Fatalw("failed to open campaign store", "err", err)
	}

	chatwootClient := chatwoot.NewClient(
		os.Getenv("CHATWOOT_URL"),
		os.Getenv("CHATWOOT_ACCOUNT_ID"),
		os.Getenv("CHATWOOT_API_TOKEN"),
		sugar,
	)
	evolutionClient := evolution.NewClient(
		os.Getenv("EVOLUTION_URL"),
		os.Getenv("EVOLUTION_API_KEY"),
		sugar,
	)

	hub := notify.NewHub(sugar)
	defer hub.Close()

	worker := service.NewWorker(st, evolutionClient, hub, sugar)
	campaignService := &service.CampaignService{
		Store:    st,
		Resolver: service.NewContactResolver(chatwootClient, evolutionClient),
		Worker:   worker,
		Log:      sugar,
	}

	campaignHandler := handler.NewCampaignHandler(campaignService, sugar)

	r := chi.NewRouter()
	campaignHandler.Routes(r)
	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	sugar.Infow("server running", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		sugar.Fatalw("server stopped", "err", err)
	}
}

func openStore() (store.Store, error) {
	if os.Getenv("CAMPAIGNS_STORAGE") == "postgres" {
		return store.NewPostgresStore(os.Getenv("DATABASE_URL"))
	}
	dir := os.Getenv("CAMPAIGNS_DIR")
	if dir == "" {
		dir = "data/campaigns"
	}
	return store.NewFileStore(dir)
}
