// cmd/runner/main.go
//
// Runs one campaign to completion from the shared store. Useful after a
// crash: a campaign stuck in started/in_progress can be re-driven here
// without touching the server; already resolved contacts are skipped.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/casamarket/wacampaigns-backend/internal/evolution"
	"github.com/casamarket/wacampaigns-backend/internal/model"
	"github.com/casamarket/wacampaigns-backend/internal/notify"
	"github.com/casamarket/wacampaigns-backend/internal/service"
	"github.com/casamarket/wacampaigns-backend/internal/store"
)

func main() {
	id := flag.String("id", "", "campaign id to run")
	flag.Parse()
	if *id == "" {
		log.Fatal("usage: runner -id <campaign-id>")
	}

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

	c, err := st.Load(*id)
	if err != nil {
		sugar.Fatalw("failed to load campaign", "campaign", *id, "err", err)
	}
	switch c.Status {
	case model.StatusStarted, model.StatusInProgress:
	default:
		sugar.Fatalw("campaign is not in a runnable state", "campaign", *id, "status", c.Status)
	}

	sender := evolution.NewClient(
		os.Getenv("EVOLUTION_URL"),
		os.Getenv("EVOLUTION_API_KEY"),
		sugar,
	)

	worker := service.NewWorker(st, sender, notify.Noop{}, sugar)
	worker.Run(*id)

	final, err := st.Load(*id)
	if err != nil {
		sugar.Fatalw("failed to reload campaign", "campaign", *id, "err", err)
	}
	sugar.Infow("run finished", "campaign", *id, "status", final.Status,
		"sent", final.Summary.Sent, "failed", final.Summary.Failed, "pending", final.Summary.Pending)
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
