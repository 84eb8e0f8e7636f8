package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type MappingHandler struct {
	repo domain.MappingRepository
}

func NewMappingHandler(repo domain.MappingRepository) *MappingHandler {
	return &MappingHandler{repo: repo}
}

type mappingPayload struct {
	CalendarID  string `json:"calendar_id" binding:"required"`
	ChatID      string `json:"chat_id" binding:"required"`
	SubThreadID *int64 `json:"sub_thread_id,omitempty"`
	Active      *bool  `json:"is_active,omitempty"`
}

type replaceMappingsRequest struct {
	Mappings []mappingPayload `json:"mappings" binding:"dive"`
}

type mappingsResponse struct {
	OK       bool             `json:"ok"`
	TenantID string           `json:"tenant_id"`
	Mappings []domain.Mapping `json:"mappings"`
}

// GET /api/v1/tenants/:tenant/mappings
func (h *MappingHandler) HandleGetMappings(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant")

	mappings, err := h.repo.GetMappings(ctx, tenantID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load mappings",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to load mappings")
		return
	}
	if mappings == nil {
		mappings = []domain.Mapping{}
	}

	c.JSON(http.StatusOK, mappingsResponse{OK: true, TenantID: tenantID, Mappings: mappings})
}

// PUT /api/v1/tenants/:tenant/mappings replaces every mapping of the tenant.
func (h *MappingHandler) HandleReplaceMappings(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant")

	var req replaceMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "mapping request validation failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	mappings := make([]domain.Mapping, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		mappings = append(mappings, domain.Mapping{
			CalendarID:  m.CalendarID,
			ChatID:      m.ChatID,
			SubThreadID: m.SubThreadID,
			Active:      active,
		})
	}

	if err := h.repo.ReplaceMappings(ctx, tenantID, mappings); err != nil {
		slog.ErrorContext(ctx, "failed to replace mappings",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to save mappings")
		return
	}

	slog.InfoContext(ctx, "mappings replaced",
		slog.String("tenant_id", tenantID),
		slog.Int("count", len(mappings)),
	)

	c.JSON(http.StatusOK, mappingsResponse{OK: true, TenantID: tenantID, Mappings: mappings})
}
