// cmd/seeder/main.go
//
// Seeds a demo manual-list campaign into the configured store so the
// server has something to show during local development.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/casamarket/wacampaigns-backend/internal/model"
	"github.com/casamarket/wacampaigns-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	st, err := openStore()
	if err != nil {
		log.Fatalf("failed to open campaign store: %v", err)
	}

	now := time.Now()
	c := &model.Campaign{
		ID:                  model.NewCampaignID(),
		Title:               "Campaña de prueba",
		MessageTemplate:     "Hola {nombre_cliente}, este es un mensaje de prueba.",
		InstanceName:        "demo",
		ContactSource:       model.SourceManual,
		SendIntervalSeconds: 5,
		Status:              model.StatusPending,
		Contacts: []model.Contact{
			{ID: "manual_1", Phone: "5215550000001", Status: model.ContactStatusPending},
			{ID: "manual_2", Phone: "5215550000002", Status: model.ContactStatusPending},
			{ID: "manual_3", Phone: "5215550000003", Status: model.ContactStatusPending},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.RecomputeSummary()

	if err := st.Save(c); err != nil {
		log.Fatalf("failed to save campaign: %v", err)
	}
	fmt.Printf("Seeded campaign %s with %d contacts\n", c.ID, len(c.Contacts))
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
