// internal/service/worker.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/casamarket/wacampaigns-backend/internal/model"
	"github.com/casamarket/wacampaigns-backend/internal/notify"
	"github.com/casamarket/wacampaigns-backend/internal/store"
)

// Sender delivers one message through a named instance. Delivery never
// retries; a failed contact stays failed until the campaign is reset.
type Sender interface {
	Send(ctx context.Context, instance, phone, text, mediaURL string) (map[string]any, error)
}

// Worker drives one campaign through its send loop. The document in the
// store is the only authoritative state: it is re-read before every
// contact (that is how an external pause takes effect) and persisted
// after every attempt, so a crash never loses or repeats a resolved send.
type Worker struct {
	Store    store.Store
	Sender   Sender
	Notifier notify.Notifier
	Log      *zap.SugaredLogger

	// one active loop per campaign per process
	running sync.Map
}

func NewWorker(st store.Store, sender Sender, notifier notify.Notifier, log *zap.SugaredLogger) *Worker {
	return &Worker{Store: st, Sender: sender, Notifier: notifier, Log: log}
}

// Run processes the campaign to a terminal or paused state. It is safe
// to call on a dispatched goroutine; nothing is reported back to the
// trigger, only to the store. A second Run for the same campaign while
// one is active is a no-op.
func (w *Worker) Run(campaignID string) {
	if _, active := w.running.LoadOrStore(campaignID, struct{}{}); active {
		w.Log.Warnw("worker already active for campaign", "campaign", campaignID)
		return
	}
	defer w.running.Delete(campaignID)

	defer func() {
		if r := recover(); r != nil {
			w.Log.Errorw("campaign worker panicked", "campaign", campaignID, "panic", r)
			w.markProcessingError(campaignID, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	if err := w.run(campaignID); err != nil {
		w.Log.Errorw("campaign run aborted", "campaign", campaignID, "err", err)
		w.markProcessingError(campaignID, err.Error())
	}
}

func (w *Worker) run(campaignID string) error {
	ctx := context.Background()

	c, err := w.Store.Load(campaignID)
	if err != nil {
		return err
	}

	// Entry guard: duplicate triggers and stale dispatches do nothing.
	switch c.Status {
	case model.StatusCompleted, model.StatusProcessingError, model.StatusPaused:
		w.Log.Infow("campaign not runnable, skipping", "campaign", campaignID, "status", c.Status)
		return nil
	case model.StatusStarted:
		c.Status = model.StatusInProgress
		c.UpdatedAt = time.Now()
		if err := w.Store.Save(c); err != nil {
			return err
		}
	case model.StatusInProgress:
		// resuming mid-run, keep going silently
	default:
		w.Log.Warnw("campaign in unexpected state for worker", "campaign", campaignID, "status", c.Status)
		return nil
	}

	total := len(c.Contacts)
	for idx := 0; idx < total; idx++ {
		// Fresh read before every attempt so an external pause lands at
		// the next contact boundary.
		fresh, err := w.Store.Load(campaignID)
		if err != nil {
			return err
		}
		if fresh.Status == model.StatusPaused {
			w.Log.Infow("pause observed, stopping loop", "campaign", campaignID, "contact_index", idx)
			return nil
		}
		if idx >= len(fresh.Contacts) {
			break
		}

		contact := &fresh.Contacts[idx]
		if contact.Status != model.ContactStatusPending {
			continue
		}

		text := RenderMessage(fresh.MessageTemplate, contact)
		_, sendErr := w.Sender.Send(ctx, fresh.InstanceName, contact.Phone, text, fresh.MultimediaURL)

		now := time.Now()
		if sendErr != nil {
			w.Log.Warnw("send failed", "campaign", campaignID, "phone", contact.Phone, "err", sendErr)
			contact.Status = model.ContactStatusFailed
			contact.Error = sendErr.Error()
			fresh.Summary.Failed++
		} else {
			contact.Status = model.ContactStatusSent
			contact.SentAt = &now
			fresh.Summary.Sent++
		}
		fresh.Summary.Pending--
		fresh.UpdatedAt = now

		// Durability point: a crash after this write loses no progress.
		if err := w.Store.Save(fresh); err != nil {
			return err
		}
		w.Notifier.Emit("campaign:progress", progressPayload(fresh))

		if fresh.PendingContacts() > 0 && fresh.SendIntervalSeconds > 0 {
			time.Sleep(time.Duration(fresh.SendIntervalSeconds) * time.Second)
		}
	}

	final, err := w.Store.Load(campaignID)
	if err != nil {
		return err
	}
	if final.Status == model.StatusPaused {
		return nil
	}
	final.Status = model.StatusCompleted
	final.UpdatedAt = time.Now()
	if err := w.Store.Save(final); err != nil {
		return err
	}
	w.Log.Infow("campaign completed", "campaign", campaignID,
		"sent", final.Summary.Sent, "failed", final.Summary.Failed)
	w.Notifier.Emit("campaign:finished", progressPayload(final))
	return nil
}

// markProcessingError is the worker's last resort: it leaves the document
// in an explicit error state if the store can still be written.
func (w *Worker) markProcessingError(campaignID, message string) {
	c, err := w.Store.Load(campaignID)
	if err != nil {
		w.Log.Errorw("could not load campaign to record error", "campaign", campaignID, "err", err)
		return
	}
	c.Status = model.StatusProcessingError
	c.LastError = message
	c.UpdatedAt = time.Now()
	if err := w.Store.Save(c); err != nil {
		w.Log.Errorw("could not persist processing error", "campaign", campaignID, "err", err)
		return
	}
	w.Notifier.Emit("campaign:finished", map[string]any{
		"id":      c.ID,
		"status":  c.Status,
		"summary": c.Summary,
		"error":   message,
	})
}

func progressPayload(c *model.Campaign) map[string]any {
	return map[string]any{
		"id":      c.ID,
		"status":  c.Status,
		"summary": c.Summary,
	}
}
