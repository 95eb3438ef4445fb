package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appErrors "github.com/casamarket/wacampaigns-backend/internal/errors"
	"github.com/casamarket/wacampaigns-backend/internal/model"
)

// FileStore keeps one <id>.json per campaign under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create campaigns dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

func (s *FileStore) Load(id string) (*model.Campaign, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	var c model.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return &c, nil
}

// Save writes to a temp file and renames it over the target so a reader
// never observes a half-written document.
func (s *FileStore) Save(c *model.Campaign) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, c.ID+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(c.ID))
}

func (s *FileStore) List() ([]*model.Campaign, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	campaigns := []*model.Campaign{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		c, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

func (s *FileStore) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return appErrors.NewCampaignNotFound(id)
		}
		return err
	}
	return nil
}

var _ Store = (*FileStore)(nil)
