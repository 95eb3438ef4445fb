package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	appErrors "github.com/casamarket/wacampaigns-backend/internal/errors"
	"github.com/casamarket/wacampaigns-backend/internal/model"
)

// PostgresStore keeps each campaign as a single jsonb record, so the
// persistence contract stays identical to the file variant: whole-document
// replace per save.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{DB: db}
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema() error {
	_, err := s.DB.Exec(`
        CREATE TABLE IF NOT EXISTS campaigns (
            id  TEXT PRIMARY KEY,
            doc JSONB NOT NULL
        )
    `)
	return err
}

func (s *PostgresStore) Load(id string) (*model.Campaign, error) {
	var raw []byte
	err := s.DB.QueryRow(`SELECT doc FROM campaigns WHERE id=$1`, id).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	var c model.Campaign
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresStore) Save(c *model.Campaign) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO campaigns (id, doc) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
    `
	_, err = s.DB.Exec(query, c.ID, raw)
	return err
}

func (s *PostgresStore) List() ([]*model.Campaign, error) {
	rows, err := s.DB.Query(`SELECT doc FROM campaigns`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var c model.Campaign
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}

func (s *PostgresStore) Delete(id string) error {
	res, err := s.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
