package store

import "github.com/casamarket/wacampaigns-backend/internal/model"

// Store persists one whole document per campaign. Save always overwrites
// the full document; callers read-modify-write. The store does not
// coordinate concurrent writers.
type Store interface {
	Load(id string) (*model.Campaign, error)
	Save(c *model.Campaign) error
	List() ([]*model.Campaign, error)
	Delete(id string) error
}
