package domain

import "context"

//go:generate mockgen -source=mapping.go -destination=mapping_mock.go -package=domain

// Mapping routes events of one source calendar to one destination.
type Mapping struct {
	CalendarID  string `json:"calendar_id"`
	ChatID      string `json:"chat_id"`
	SubThreadID *int64 `json:"sub_thread_id,omitempty"`
	Active      bool   `json:"is_active"`
}

func (m Mapping) Destination() Destination {
	return NewDestination(m.ChatID, m.SubThreadID)
}

type MappingRepository interface {
	GetActiveMappings(ctx context.Context, tenantID string) ([]Mapping, error)
	ReplaceMappings(ctx context.Context, tenantID string, mappings []Mapping) error
	GetMappings(ctx context.Context, tenantID string) ([]Mapping, error)
	ListTenants(ctx context.Context) ([]string, error)
}
