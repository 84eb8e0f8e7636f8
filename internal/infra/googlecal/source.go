package googlecal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/observability/tracing"
)

const (
	eventTypeBirthday = "birthday"
	statusCancelled   = "cancelled"
	calendarListMax   = 250
)

// Source reads events through the Google Calendar API. Legacy runs use the
// global credential and the configured calendars; tenant runs use the
// tenant's credential and the calendars of its active mappings.
type Source struct {
	cfg      config.GoogleCalendarConfig
	oauth    *oauth2.Config
	global   domain.CredentialStore
	tenants  domain.CredentialStore
	mappings domain.MappingRepository
	loc      *time.Location
	lookback time.Duration

	clientOptions []option.ClientOption
}

func NewSource(
	cfg *config.CalendarConfig,
	global domain.CredentialStore,
	tenants domain.CredentialStore,
	mappings domain.MappingRepository,
	loc *time.Location,
) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		cfg: cfg.Google,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarReadonlyScope},
		},
		global:   global,
		tenants:  tenants,
		mappings: mappings,
		loc:      loc,
		lookback: time.Duration(cfg.LookbackMinutes) * time.Minute,
	}
}

var _ domain.CalendarSource = (*Source)(nil)

func (s *Source) FetchEvents(ctx context.Context, tenantID string, now time.Time) ([]domain.CalendarEvent, error) {
	var calendarIDs []string
	if tenantID != "" {
		ids, err := s.tenantCalendars(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			slog.DebugContext(ctx, "tenant has no active mappings", slog.String("tenant_id", tenantID))
			return nil, nil
		}
		calendarIDs = ids
	}

	svc, err := s.service(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if tenantID == "" {
		calendarIDs, err = s.legacyCalendars(ctx, svc)
		if err != nil {
			return nil, err
		}
	}

	timeMin := now.Add(-s.lookback).UTC().Format(time.RFC3339)

	var events []domain.CalendarEvent
	for _, calendarID := range calendarIDs {
		calEvents, err := s.listEvents(ctx, svc, calendarID, timeMin)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", calendarID, err)
		}
		events = append(events, calEvents...)
	}

	slices.SortStableFunc(events, func(a, b domain.CalendarEvent) int {
		return a.StartAt.Compare(b.StartAt)
	})

	slog.DebugContext(ctx, "fetched google calendar events",
		slog.String("tenant_id", tenantID),
		slog.Int("calendar_count", len(calendarIDs)),
		slog.Int("event_count", len(events)),
	)

	return events, nil
}

func (s *Source) service(ctx context.Context, tenantID string) (*calendar.Service, error) {
	store := s.global
	if tenantID != "" {
		store = s.tenants
	}

	cred, err := store.Load(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialLoad, err)
	}

	ts := newPersistingTokenSource(ctx, s.oauth.TokenSource(ctx, toOAuthToken(cred)), store, tenantID, cred)

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, s.clientOptions...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

// tenantCalendars returns the distinct calendars of the tenant's active mappings.
func (s *Source) tenantCalendars(ctx context.Context, tenantID string) ([]string, error) {
	mappings, err := s.mappings.GetActiveMappings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCalendarSelection, err)
	}
	var ids []string
	for _, m := range mappings {
		if !slices.Contains(ids, m.CalendarID) {
			ids = append(ids, m.CalendarID)
		}
	}
	return ids, nil
}

// legacyCalendars reads configured ids, else configured names resolved
// through the calendar list, else a single id.
func (s *Source) legacyCalendars(ctx context.Context, svc *calendar.Service) ([]string, error) {
	if len(s.cfg.CalendarIDs) > 0 {
		return s.cfg.CalendarIDs, nil
	}

	if len(s.cfg.CalendarNames) > 0 {
		ids, err := s.resolveNames(ctx, svc)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}

	if s.cfg.CalendarID != "" {
		return []string{s.cfg.CalendarID}, nil
	}

	return nil, domain.ErrNoCalendarsConfigured
}

func (s *Source) resolveNames(ctx context.Context, svc *calendar.Service) ([]string, error) {
	ctx, span := tracing.StartExternalAPISpan(ctx, "google.calendar_list", "calendarList.list")
	defer span.End()

	nameToID := make(map[string]string)
	err := svc.CalendarList.List().MaxResults(calendarListMax).Pages(ctx, func(page *calendar.CalendarList) error {
		for _, entry := range page.Items {
			if name := strings.TrimSpace(entry.Summary); name != "" && entry.Id != "" {
				nameToID[strings.ToLower(name)] = entry.Id
			}
		}
		return nil
	})
	tracing.RecordResult(span, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCalendarSelection, err)
	}

	var ids []string
	for _, name := range s.cfg.CalendarNames {
		id, ok := nameToID[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			slog.WarnContext(ctx, "calendar name not found", slog.String("name", name))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Source) listEvents(ctx context.Context, svc *calendar.Service, calendarID, timeMin string) ([]domain.CalendarEvent, error) {
	ctx, span := tracing.StartExternalAPISpan(ctx, "google.events_list", "events.list")
	defer span.End()

	resp, err := svc.Events.List(calendarID).
		TimeMin(timeMin).
		MaxResults(int64(s.cfg.MaxEventsPerCalendar)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	tracing.RecordResult(span, err)
	if err != nil {
		return nil, err
	}

	defaults := convertReminders(resp.DefaultReminders)

	events := make([]domain.CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.EventType == eventTypeBirthday || item.Status == statusCancelled {
			continue
		}
		ev, err := s.toCalendarEvent(item, calendarID, resp.Summary, defaults)
		if err != nil {
			slog.DebugContext(ctx, "skipping google event",
				slog.String("event_id", item.Id),
				slog.String("error", err.Error()),
			)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

var errMissingStart = errors.New("event has no start")

func (s *Source) toCalendarEvent(item *calendar.Event, calendarID, calendarSummary string, defaults []domain.Reminder) (domain.CalendarEvent, error) {
	start, allDay, err := s.eventStart(item.Start)
	if err != nil {
		return domain.CalendarEvent{}, err
	}

	label := calendarSummary
	if label == "" {
		label = calendarID
	}

	return domain.CalendarEvent{
		ID:                  item.Id,
		Title:               item.Summary,
		Description:         item.Description,
		StartAt:             start,
		AllDay:              allDay,
		MeetingLink:         item.HangoutLink,
		DetailLink:          item.HtmlLink,
		EffectiveReminders:  effectiveReminders(item.Reminders, defaults),
		SourceCalendarID:    calendarID,
		SourceCalendarLabel: label,
	}, nil
}

func (s *Source) eventStart(dt *calendar.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, errMissingStart
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(s.loc), false, nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation(time.DateOnly, dt.Date, s.loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}
	return time.Time{}, false, errMissingStart
}

// effectiveReminders uses the event overrides when present, otherwise the
// calendar defaults if the event opts into them.
func effectiveReminders(r *calendar.EventReminders, defaults []domain.Reminder) []domain.Reminder {
	if r == nil {
		return nil
	}
	if len(r.Overrides) > 0 {
		return convertReminders(r.Overrides)
	}
	if r.UseDefault {
		return defaults
	}
	return nil
}

func convertReminders(in []*calendar.EventReminder) []domain.Reminder {
	out := make([]domain.Reminder, 0, len(in))
	for _, r := range in {
		if r == nil {
			continue
		}
		out = append(out, domain.NewReminder(domain.ParseReminderMethod(r.Method), int(r.Minutes)))
	}
	return out
}
