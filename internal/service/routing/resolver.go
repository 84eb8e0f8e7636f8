package routing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
)

// Resolver turns a candidate into destinations. A Resolver is built once per
// dispatch cycle so tenant mappings are read from the store a single time.
type Resolver interface {
	Resolve(c domain.Candidate) []domain.Destination
}

// Factory builds the resolver for one dispatch cycle.
type Factory struct {
	mappings   domain.MappingRepository
	classifier *Classifier
	legacy     *config.LegacyConfig
}

func NewFactory(mappings domain.MappingRepository, legacy *config.LegacyConfig) *Factory {
	return &Factory{
		mappings:   mappings,
		classifier: NewClassifier(legacy),
		legacy:     legacy,
	}
}

// ForTenant returns the per-tenant resolver when tenantID is set and the
// legacy resolver otherwise. Mapping store failures are returned wrapped
// with domain.ErrMappingLoad.
func (f *Factory) ForTenant(ctx context.Context, tenantID string) (Resolver, error) {
	if tenantID == "" {
		return NewLegacyResolver(f.classifier, f.legacy), nil
	}

	if f.mappings == nil {
		return nil, fmt.Errorf("%w: no mapping repository configured", domain.ErrMappingLoad)
	}

	rows, err := f.mappings.GetActiveMappings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMappingLoad, err)
	}

	return NewTenantResolver(rows), nil
}

type TenantResolver struct {
	byCalendar map[string][]domain.Destination
}

func NewTenantResolver(rows []domain.Mapping) *TenantResolver {
	byCalendar := make(map[string][]domain.Destination)
	for _, m := range rows {
		if !m.Active || m.ChatID == "" {
			continue
		}
		byCalendar[m.CalendarID] = append(byCalendar[m.CalendarID], m.Destination())
	}
	return &TenantResolver{byCalendar: byCalendar}
}

func (r *TenantResolver) Resolve(c domain.Candidate) []domain.Destination {
	dests := r.byCalendar[c.Event.SourceCalendarID]
	if len(dests) == 0 {
		return nil
	}
	out := make([]domain.Destination, len(dests))
	copy(out, dests)
	return out
}

type LegacyResolver struct {
	classifier *Classifier
	chatID     string
	topics     map[domain.Category]int64
}

func NewLegacyResolver(classifier *Classifier, cfg *config.LegacyConfig) *LegacyResolver {
	r := &LegacyResolver{
		classifier: classifier,
		topics:     map[domain.Category]int64{},
	}
	if cfg != nil {
		r.chatID = cfg.ChatID
		r.topics[domain.CategoryRdB] = cfg.TopicRdB
		r.topics[domain.CategoryRdC] = cfg.TopicRdC
	}
	return r
}

func (r *LegacyResolver) Resolve(c domain.Candidate) []domain.Destination {
	if r.chatID == "" {
		slog.Debug("legacy chat not configured, dropping candidate",
			slog.String("event_id", c.Event.ID),
		)
		return nil
	}

	category := r.classifier.Classify(c.Event)
	switch category {
	case domain.CategoryGeneral:
		return []domain.Destination{domain.NewDestination(r.chatID, nil)}
	case domain.CategoryRdB, domain.CategoryRdC:
		topic := r.topics[category]
		return []domain.Destination{domain.NewDestination(r.chatID, &topic)}
	default:
		slog.Debug("no category resolved, dropping candidate",
			slog.String("event_id", c.Event.ID),
			slog.String("calendar", c.Event.SourceCalendarLabel),
		)
		return nil
	}
}
