package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/casamarket/wacampaigns-backend/internal/errors"
	"github.com/casamarket/wacampaigns-backend/internal/model"
	"github.com/casamarket/wacampaigns-backend/internal/notify"
	"github.com/casamarket/wacampaigns-backend/internal/service"
)

// memStore is an in-memory Store that hands out deep copies, like the
// real stores do. onSave fires after each successful save with the save
// count, so tests can inject an external pause at an exact point.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]*model.Campaign
	saves    int
	onSave   func(saveCount int, docs map[string]*model.Campaign)
	failLoad int // fail the Nth Load call once; 0 = never
	loads    int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]*model.Campaign{}}
}

func cloneCampaign(c *model.Campaign) *model.Campaign {
	cp := *c
	cp.Contacts = make([]model.Contact, len(c.Contacts))
	copy(cp.Contacts, c.Contacts)
	return &cp
}

func (m *memStore) Load(id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.failLoad > 0 && m.loads == m.failLoad {
		return nil, fmt.Errorf("simulated store read failure")
	}
	c, ok := m.docs[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return cloneCampaign(c), nil
}

func (m *memStore) Save(c *model.Campaign) error {
	m.mu.Lock()
	m.docs[c.ID] = cloneCampaign(c)
	m.saves++
	n := m.saves
	hook := m.onSave
	docs := m.docs
	m.mu.Unlock()
	if hook != nil {
		hook(n, docs)
	}
	return nil
}

func (m *memStore) List() ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Campaign, 0, len(m.docs))
	for _, c := range m.docs {
		out = append(out, cloneCampaign(c))
	}
	return out, nil
}

func (m *memStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(m.docs, id)
	return nil
}

// stubSender records every send and fails the phones it is told to.
type stubSender struct {
	mu         sync.Mutex
	sentPhones []string
	failPhones map[string]bool
}

func (s *stubSender) Send(ctx context.Context, instance, phone, text, mediaURL string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentPhones = append(s.sentPhones, phone)
	if s.failPhones[phone] {
		return nil, fmt.Errorf("number is not on whatsapp")
	}
	return map[string]any{"status": "PENDING"}, nil
}

func (s *stubSender) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.sentPhones...)
}

func seedCampaign(st *memStore, status string, phones ...string) *model.Campaign {
	c := &model.Campaign{
		ID:              model.NewCampaignID(),
		Title:           "Promo",
		MessageTemplate: "Hola {nombre_cliente}",
		InstanceName:    "main",
		ContactSource:   model.SourceManual,
		Status:          status,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	for i, p := range phones {
		c.Contacts = append(c.Contacts, model.Contact{
			ID:     fmt.Sprintf("manual_%d", i+1),
			Phone:  p,
			Status: model.ContactStatusPending,
		})
	}
	c.RecomputeSummary()
	st.Save(c)
	return c
}

func newTestWorker(st *memStore, sender service.Sender) *service.Worker {
	return service.NewWorker(st, sender, notify.Noop{}, zap.NewNop().Sugar())
}

func TestWorkerSendsAllContacts(t *testing.T) {
	st := newMemStore()
	sender := &stubSender{}
	c := seedCampaign(st, model.StatusStarted, "1115550001", "1115550002")

	newTestWorker(st, sender).Run(c.ID)

	final, err := st.Load(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, model.Summary{TotalContacts: 2, Sent: 2, Failed: 0, Pending: 0}, final.Summary)
	for _, contact := range final.Contacts {
		assert.Equal(t, model.ContactStatusSent, contact.Status)
		assert.NotNil(t, contact.SentAt)
		assert.Empty(t, contact.Error)
	}
	assert.Equal(t, []string{"1115550001", "1115550002"}, sender.calls())
}

func TestWorkerContactFailureIsNotFatal(t *testing.T) {
	st := newMemStore()
	sender := &stubSender{failPhones: map[string]bool{"1115550002": true}}
	c := seedCampaign(st, model.StatusStarted, "1115550001", "1115550002")

	newTestWorker(st, sender).Run(c.ID)

	final, err := st.Load(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, model.Summary{TotalContacts: 2, Sent: 1, Failed: 1, Pending: 0}, final.Summary)

	assert.Equal(t, model.ContactStatusSent, final.Contacts[0].Status)
	assert.Equal(t, model.ContactStatusFailed, final.Contacts[1].Status)
	assert.Equal(t, "number is not on whatsapp", final.Contacts[1].Error)
	assert.Nil(t, final.Contacts[1].SentAt)
}

func TestWorkerObservesExternalPause(t *testing.T) {
	st := newMemStore()
	sender := &stubSender{}
	c := seedCampaign(st, model.StatusStarted, "1115550001", "1115550002", "1115550003")

	// save #1 seeds, #2 is started->in_progress, #3 persists contact 1.
	// Rewrite the document to paused right after that, before the worker
	// re-reads for contact 2.
	st.onSave = func(n int, docs map[string]*model.Campaign) {
		if n == 3 {
			st.mu.Lock()
			docs[c.ID].Status = model.StatusPaused
			st.mu.Unlock()
		}
	}

	newTestWorker(st, sender).Run(c.ID)

	final, err := st.Load(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, final.Status)
	assert.Equal(t, model.ContactStatusSent, final.Contacts[0].Status)
	assert.Equal(t, model.ContactStatusPending, final.Contacts[1].Status)
	assert.Equal(t, model.ContactStatusPending, final.Contacts[2].Status)
	assert.Equal(t, model.Summary{TotalContacts: 3, Sent: 1, Failed: 0, Pending: 2}, final.Summary)
	assert.Equal(t, []string{"1115550001"}, sender.calls())
}

func TestWorkerSkipsAlreadyResolvedContacts(t *testing.T) {
	st := newMemStore()
	sender := &stubSender{}
	c := seedCampaign(st, model.StatusInProgress, "1115550001", "1115550002", "1115550003")

	// simulate a previous run that already handled the first two
	sentAt := time.Now()
	c.Contacts[0].Status = model.ContactStatusSent
	c.Contacts[0].SentAt = &sentAt
	c.Contacts[1].Status = model.ContactStatusFailed
	c.Contacts[1].Error = "timeout"
	c.RecomputeSummary()
	require.NoError(t, st.Save(c))

	newTestWorker(st, sender).Run(c.ID)

	final, err := st.Load(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, model.Summary{TotalContacts: 3, Sent: 2, Failed: 1, Pending: 0}, final.Summary)
	assert.Equal(t, []string{"1115550003"}, sender.calls(), "resolved contacts must not be re-sent")
}

func TestWorkerEntryGuardIsNoOp(t *testing.T) {
	for _, status := range []string{model.StatusCompleted, model.StatusPaused, model.StatusProcessingError} {
		t.Run(status, func(t *testing.T) {
			st := newMemStore()
			sender := &stubSender{}
			c := seedCampaign(st, status, "1115550001")

			newTestWorker(st, sender).Run(c.ID)

			final, err := st.Load(c.ID)
			require.NoError(t, err)
			assert.Equal(t, status, final.Status)
			assert.Empty(t, sender.calls())
		})
	}
}

func TestWorkerStoreFailureMarksProcessingError(t *testing.T) {
	st := newMemStore()
	sender := &stubSender{}
	c := seedCampaign(st, model.StatusStarted, "1115550001", "1115550002")

	// load #1 is the entry guard, #2 the read before contact 1; fail #3
	// (the read before contact 2) mid-loop.
	st.failLoad = 3

	newTestWorker(st, sender).Run(c.ID)

	final, err := st.Load(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessingError, final.Status)
	assert.Equal(t, "simulated store read failure", final.LastError,
		"the failure reason must be readable from the document itself")
	assert.Equal(t, model.ContactStatusSent, final.Contacts[0].Status)
	assert.Equal(t, model.ContactStatusPending, final.Contacts[1].Status)
}

func TestWorkerRendersTemplatePerContact(t *testing.T) {
	st := newMemStore()

	var gotText string
	sender := &recordingSender{onSend: func(phone, text string) { gotText = text }}

	c := seedCampaign(st, model.StatusStarted, "1115550001")
	c.MessageTemplate = "Hola {nombre_cliente} ({telefono_cliente})"
	c.Contacts[0].FirstName = "Ana"
	require.NoError(t, st.Save(c))

	newTestWorker(st, sender).Run(c.ID)

	assert.Equal(t, "Hola Ana (1115550001)", gotText)
}

type recordingSender struct {
	onSend func(phone, text string)
}

func (r *recordingSender) Send(ctx context.Context, instance, phone, text, mediaURL string) (map[string]any, error) {
	if r.onSend != nil {
		r.onSend(phone, text)
	}
	return map[string]any{}, nil
}
