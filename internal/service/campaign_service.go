// internal/service/campaign_service.go
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/casamarket/wacampaigns-backend/internal/errors"
	"github.com/casamarket/wacampaigns-backend/internal/model"
	"github.com/casamarket/wacampaigns-backend/internal/store"
)

// CampaignService owns the campaign lifecycle. Every mutation goes
// through the store document; the worker is dispatched fire-and-forget
// and reports nothing back here.
type CampaignService struct {
	Store    store.Store
	Resolver *ContactResolver
	Worker   *Worker
	Log      *zap.SugaredLogger
}

type CreateCampaignRequest struct {
	Title               string `json:"title"`
	MessageTemplate     string `json:"messageTemplate"`
	InstanceName        string `json:"instanceName"`
	ContactSource       string `json:"contactSource"`
	ChatwootLabel       string `json:"chatwootLabel"`
	MultimediaURL       string `json:"multimediaUrl"`
	SendIntervalSeconds int    `json:"sendIntervalSeconds"`
	ManualContacts      string `json:"manualContacts"`
	Start               bool   `json:"start"`
}

type UpdateCampaignRequest struct {
	Title               *string `json:"title"`
	MessageTemplate     *string `json:"messageTemplate"`
	InstanceName        *string `json:"instanceName"`
	ContactSource       *string `json:"contactSource"`
	ChatwootLabel       *string `json:"chatwootLabel"`
	MultimediaURL       *string `json:"multimediaUrl"`
	SendIntervalSeconds *int    `json:"sendIntervalSeconds"`
	ManualContacts      *string `json:"manualContacts"`
}

// CampaignSummaryView is the list projection: no contacts, no template.
type CampaignSummaryView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Status        string        `json:"status"`
	ContactSource string        `json:"contactSource"`
	ChatwootLabel string        `json:"chatwootLabel,omitempty"`
	Summary       model.Summary `json:"summary"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (s *CampaignService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*model.Campaign, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, appErrors.NewValidation("title is required")
	}
	if strings.TrimSpace(req.MessageTemplate) == "" {
		return nil, appErrors.NewValidation("messageTemplate is required")
	}
	if strings.TrimSpace(req.InstanceName) == "" {
		return nil, appErrors.NewValidation("instanceName is required")
	}
	if req.ContactSource == "" {
		return nil, appErrors.NewValidation("contactSource is required")
	}
	if req.SendIntervalSeconds < 0 {
		return nil, appErrors.NewValidation("sendIntervalSeconds cannot be negative")
	}

	contacts, err := s.Resolver.Resolve(ctx, ResolveParams{
		Source:       req.ContactSource,
		Label:        req.ChatwootLabel,
		InstanceName: req.InstanceName,
		ManualText:   req.ManualContacts,
	})
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, appErrors.NewValidation("contact source resolved zero contacts")
	}

	now := time.Now()
	c := &model.Campaign{
		ID:                  model.NewCampaignID(),
		Title:               req.Title,
		MessageTemplate:     req.MessageTemplate,
		InstanceName:        req.InstanceName,
		ContactSource:       req.ContactSource,
		ChatwootLabel:       req.ChatwootLabel,
		MultimediaURL:       req.MultimediaURL,
		SendIntervalSeconds: req.SendIntervalSeconds,
		Status:              model.StatusPending,
		Contacts:            contacts,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	c.RecomputeSummary()

	if err := s.Store.Save(c); err != nil {
		return nil, err
	}
	s.Log.Infow("campaign created", "campaign", c.ID, "contacts", len(contacts), "source", c.ContactSource)

	if req.Start {
		if err := s.StartCampaign(c.ID); err != nil {
			return c, err
		}
		c.Status = model.StatusStarted
	}
	return c, nil
}

// StartCampaign flips a pending campaign to started and dispatches the
// worker without waiting for it.
func (s *CampaignService) StartCampaign(id string) error {
	c, err := s.Store.Load(id)
	if err != nil {
		return err
	}
	if c.Status != model.StatusPending {
		return appErrors.NewValidation("campaign cannot be started from status %s", c.Status)
	}
	c.Status = model.StatusStarted
	c.LastError = ""
	c.UpdatedAt = time.Now()
	if err := s.Store.Save(c); err != nil {
		return err
	}
	s.Log.Infow("campaign started", "campaign", id)
	go s.Worker.Run(id)
	return nil
}

// PauseCampaign marks the document paused no matter its current state.
// The running loop notices at the next contact boundary.
func (s *CampaignService) PauseCampaign(id string) error {
	c, err := s.Store.Load(id)
	if err != nil {
		return err
	}
	c.Status = model.StatusPaused
	c.UpdatedAt = time.Now()
	if err := s.Store.Save(c); err != nil {
		return err
	}
	s.Log.Infow("campaign paused", "campaign", id)
	return nil
}

func (s *CampaignService) ResumeCampaign(id string) error {
	c, err := s.Store.Load(id)
	if err != nil {
		return err
	}
	if c.Status != model.StatusPaused {
		return appErrors.NewValidation("only paused campaigns can be resumed, status is %s", c.Status)
	}
	c.Status = model.StatusInProgress
	c.UpdatedAt = time.Now()
	if err := s.Store.Save(c); err != nil {
		return err
	}
	s.Log.Infow("campaign resumed", "campaign", id)
	go s.Worker.Run(id)
	return nil
}

// ResetCampaign puts a finished campaign back to pending with every
// contact cleared, so the next start reprocesses the whole list.
func (s *CampaignService) ResetCampaign(id string) error {
	c, err := s.Store.Load(id)
	if err != nil {
		return err
	}
	switch c.Status {
	case model.StatusCompleted, model.StatusFailed, model.StatusProcessingError:
	default:
		return appErrors.NewValidation("campaign cannot be reset from status %s", c.Status)
	}

	for i := range c.Contacts {
		c.Contacts[i].Status = model.ContactStatusPending
		c.Contacts[i].SentAt = nil
		c.Contacts[i].Error = ""
	}
	c.Status = model.StatusPending
	c.LastError = ""
	c.RecomputeSummary()
	c.UpdatedAt = time.Now()
	if err := s.Store.Save(c); err != nil {
		return err
	}
	s.Log.Infow("campaign reset", "campaign", id, "contacts", len(c.Contacts))
	return nil
}

// UpdateCampaign patches editable fields of a pending campaign. Changing
// the contact source, label or manual list re-resolves the whole list.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, req UpdateCampaignRequest) (*model.Campaign, error) {
	c, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusPending {
		return nil, appErrors.NewValidation("only pending campaigns can be edited, status is %s", c.Status)
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, appErrors.NewValidation("title cannot be empty")
		}
		c.Title = *req.Title
	}
	if req.MessageTemplate != nil {
		if strings.TrimSpace(*req.MessageTemplate) == "" {
			return nil, appErrors.NewValidation("messageTemplate cannot be empty")
		}
		c.MessageTemplate = *req.MessageTemplate
	}
	if req.InstanceName != nil {
		c.InstanceName = *req.InstanceName
	}
	if req.MultimediaURL != nil {
		c.MultimediaURL = *req.MultimediaURL
	}
	if req.SendIntervalSeconds != nil {
		if *req.SendIntervalSeconds < 0 {
			return nil, appErrors.NewValidation("sendIntervalSeconds cannot be negative")
		}
		c.SendIntervalSeconds = *req.SendIntervalSeconds
	}

	sourceChanged := false
	if req.ContactSource != nil && *req.ContactSource != c.ContactSource {
		c.ContactSource = *req.ContactSource
		sourceChanged = true
	}
	if req.ChatwootLabel != nil && *req.ChatwootLabel != c.ChatwootLabel {
		c.ChatwootLabel = *req.ChatwootLabel
		sourceChanged = true
	}
	// the raw manual text is not kept on the document, so providing it
	// always counts as a change
	if req.ManualContacts != nil {
		sourceChanged = true
	}

	if sourceChanged {
		manual := ""
		if req.ManualContacts != nil {
			manual = *req.ManualContacts
		}
		contacts, err := s.Resolver.Resolve(ctx, ResolveParams{
			Source:       c.ContactSource,
			Label:        c.ChatwootLabel,
			InstanceName: c.InstanceName,
			ManualText:   manual,
		})
		if err != nil {
			return nil, err
		}
		if len(contacts) == 0 {
			return nil, appErrors.NewValidation("contact source resolved zero contacts")
		}
		c.Contacts = contacts
		c.RecomputeSummary()
	}

	c.UpdatedAt = time.Now()
	if err := s.Store.Save(c); err != nil {
		return nil, err
	}
	s.Log.Infow("campaign updated", "campaign", id, "contacts_reresolved", sourceChanged)
	return c, nil
}

func (s *CampaignService) DeleteCampaign(id string) error {
	if err := s.Store.Delete(id); err != nil {
		return err
	}
	s.Log.Infow("campaign deleted", "campaign", id)
	return nil
}

func (s *CampaignService) GetCampaign(id string) (*model.Campaign, error) {
	return s.Store.Load(id)
}

// ListCampaigns returns summary projections, newest first.
func (s *CampaignService) ListCampaigns() ([]CampaignSummaryView, error) {
	campaigns, err := s.Store.List()
	if err != nil {
		return nil, err
	}

	views := make([]CampaignSummaryView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, CampaignSummaryView{
			ID:            c.ID,
			Title:         c.Title,
			Status:        c.Status,
			ContactSource: c.ContactSource,
			ChatwootLabel: c.ChatwootLabel,
			Summary:       c.Summary,
			CreatedAt:     c.CreatedAt,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}
