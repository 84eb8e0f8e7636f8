package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

const (
	mappingKeyPrefix = "calendar:mappings:"
	// The registry sits outside mappingKeyPrefix so no tenant id can collide with it.
	tenantSetKey = "calendar:tenants"
)

type mappingRecord struct {
	CalendarID  string `json:"calendar_id"`
	ChatID      string `json:"chat_id"`
	SubThreadID *int64 `json:"sub_thread_id,omitempty"`
	Active      bool   `json:"is_active"`
}

type mappingDocument struct {
	TenantID  string          `json:"tenant_id"`
	Mappings  []mappingRecord `json:"mappings"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type mappingRepository struct {
	client *redis.Client
}

func NewMappingRepository(client *redis.Client) domain.MappingRepository {
	return &mappingRepository{
		client: client,
	}
}

func (r *mappingRepository) GetMappings(ctx context.Context, tenantID string) ([]domain.Mapping, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	data, err := r.client.Get(ctx, mappingKeyPrefix+tenantID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.Mapping{}, nil
		}
		return nil, err
	}

	var doc mappingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ErrInvalidMappingData
	}

	mappings := make([]domain.Mapping, 0, len(doc.Mappings))
	for _, rec := range doc.Mappings {
		mappings = append(mappings, domain.Mapping{
			CalendarID:  rec.CalendarID,
			ChatID:      rec.ChatID,
			SubThreadID: rec.SubThreadID,
			Active:      rec.Active,
		})
	}

	return mappings, nil
}

func (r *mappingRepository) GetActiveMappings(ctx context.Context, tenantID string) ([]domain.Mapping, error) {
	all, err := r.GetMappings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active := make([]domain.Mapping, 0, len(all))
	for _, m := range all {
		if m.Active {
			active = append(active, m)
		}
	}

	return active, nil
}

// ReplaceMappings overwrites the tenant's whole mapping set. An empty set
// removes the tenant from the registry.
func (r *mappingRepository) ReplaceMappings(ctx context.Context, tenantID string, mappings []domain.Mapping) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}

	key := mappingKeyPrefix + tenantID

	if len(mappings) == 0 {
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, key)
		pipe.SRem(ctx, tenantSetKey, tenantID)
		_, err := pipe.Exec(ctx)
		return err
	}

	doc := mappingDocument{
		TenantID:  tenantID,
		Mappings:  make([]mappingRecord, 0, len(mappings)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, m := range mappings {
		if m.CalendarID == "" || m.ChatID == "" {
			return ErrInvalidMappingData
		}
		doc.Mappings = append(doc.Mappings, mappingRecord{
			CalendarID:  m.CalendarID,
			ChatID:      m.ChatID,
			SubThreadID: m.SubThreadID,
			Active:      m.Active,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return ErrInvalidMappingData
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, tenantSetKey, tenantID)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *mappingRepository) ListTenants(ctx context.Context) ([]string, error) {
	tenants, err := r.client.SMembers(ctx, tenantSetKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(tenants)
	return tenants, nil
}
