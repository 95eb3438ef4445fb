// internal/service/resolver.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/casamarket/wacampaigns-backend/internal/chatwoot"
	"github.com/casamarket/wacampaigns-backend/internal/evolution"
	appErrors "github.com/casamarket/wacampaigns-backend/internal/errors"
	"github.com/casamarket/wacampaigns-backend/internal/model"
)

// ContactDirectory is the slice of the Chatwoot API the resolver needs.
type ContactDirectory interface {
	ListContacts(ctx context.Context, page int) (*chatwoot.Page, error)
	ListLabelContacts(ctx context.Context, label string, page int) (*chatwoot.Page, error)
}

// ChannelDirectory lists the contacts a delivery instance knows about.
type ChannelDirectory interface {
	FetchContacts(ctx context.Context, instance string) ([]evolution.ChannelContact, error)
}

// ResolveParams carries whichever inputs the chosen source needs.
type ResolveParams struct {
	Source       string
	Label        string
	InstanceName string
	ManualText   string
}

// ContactResolver gathers a campaign's recipient list from one of the
// supported sources and normalizes it into contact records. Every
// returned contact has a non-empty phone.
type ContactResolver struct {
	Directory ContactDirectory
	Channels  ChannelDirectory
}

func NewContactResolver(directory ContactDirectory, channels ChannelDirectory) *ContactResolver {
	return &ContactResolver{Directory: directory, Channels: channels}
}

func (r *ContactResolver) Resolve(ctx context.Context, params ResolveParams) ([]model.Contact, error) {
	switch params.Source {
	case model.SourceChatwootLabel:
		if params.Label == "" {
			return nil, appErrors.NewValidation("chatwootLabel is required for source %s", params.Source)
		}
		return r.resolveDirectory(ctx, params.Label)
	case model.SourceChatwootAll:
		return r.resolveDirectory(ctx, "")
	case model.SourceInstanceContacts:
		if params.InstanceName == "" {
			return nil, appErrors.NewValidation("instanceName is required for source %s", params.Source)
		}
		return r.resolveChannel(ctx, params.InstanceName)
	case model.SourceManual:
		return resolveManual(params.ManualText), nil
	default:
		return nil, appErrors.NewValidation("unknown contact source: %s", params.Source)
	}
}

// resolveDirectory pages through the Chatwoot directory until a short
// page comes back or the reported total is reached.
func (r *ContactResolver) resolveDirectory(ctx context.Context, label string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	seen := 0
	for page := 1; ; page++ {
		var (
			p   *chatwoot.Page
			err error
		)
		if label != "" {
			p, err = r.Directory.ListLabelContacts(ctx, label, page)
		} else {
			p, err = r.Directory.ListContacts(ctx, page)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch contacts page %d: %w", page, err)
		}
		if len(p.Contacts) == 0 {
			break
		}
		seen += len(p.Contacts)

		for _, dc := range p.Contacts {
			phone := NormalizePhone(dc.PhoneNumber)
			if phone == "" {
				continue
			}
			first, last := splitName(dc.Name)
			contacts = append(contacts, model.Contact{
				ID:        fmt.Sprintf("%d", dc.ID),
				Phone:     phone,
				FirstName: first,
				LastName:  last,
				Email:     dc.Email,
				Status:    model.ContactStatusPending,
			})
		}

		if p.Total > 0 && seen >= p.Total {
			break
		}
		if len(p.Contacts) < chatwootPageSize {
			break
		}
	}
	return contacts, nil
}

// Chatwoot serves fixed pages of 15; a shorter page is the last one.
const chatwootPageSize = 15

func (r *ContactResolver) resolveChannel(ctx context.Context, instance string) ([]model.Contact, error) {
	channelContacts, err := r.Channels.FetchContacts(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("fetch instance contacts: %w", err)
	}

	contacts := []model.Contact{}
	for _, cc := range channelContacts {
		// chat addresses look like 5215512345678@s.whatsapp.net
		addr := cc.ID
		if at := strings.Index(addr, "@"); at >= 0 {
			addr = addr[:at]
		}
		phone := NormalizePhone(addr)
		if phone == "" {
			continue
		}
		name := strings.TrimSpace(cc.PushName)
		if name == "" {
			name = "Contacto " + phone
		}
		first, last := splitName(name)
		contacts = append(contacts, model.Contact{
			ID:        cc.ID,
			Phone:     phone,
			FirstName: first,
			LastName:  last,
			Status:    model.ContactStatusPending,
		})
	}
	return contacts, nil
}

func resolveManual(text string) []model.Contact {
	contacts := []model.Contact{}
	for _, line := range strings.Split(text, "\n") {
		phone := NormalizePhone(strings.TrimSpace(line))
		if phone == "" {
			continue
		}
		contacts = append(contacts, model.Contact{
			ID:     fmt.Sprintf("manual_%d", len(contacts)+1),
			Phone:  phone,
			Status: model.ContactStatusPending,
		})
	}
	return contacts
}

// NormalizePhone strips everything but digits. A leading + is tolerated
// and dropped along with the rest of the noise.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
