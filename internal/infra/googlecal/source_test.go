package googlecal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
)

type fakeCalendarAPI struct {
	mu        sync.Mutex
	events    map[string]map[string]any
	calendars []map[string]any
	tokens    []string
	listed    []string
	timeMins  []string
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/token":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "refreshed",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
		return
	case r.URL.Path == "/users/me/calendarList":
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"items": f.calendars})
		return
	case strings.HasPrefix(r.URL.Path, "/calendars/") && strings.HasSuffix(r.URL.Path, "/events"):
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/calendars/"), "/events")
		f.listed = append(f.listed, id)
		f.timeMins = append(f.timeMins, r.URL.Query().Get("timeMin"))
		body, ok := f.events[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "Not Found"}})
			return
		}
		_ = json.NewEncoder(w).Encode(body)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func newFakeAPI() *fakeCalendarAPI {
	return &fakeCalendarAPI{
		events: map[string]map[string]any{
			"team@group": {
				"summary": "RdB",
				"defaultReminders": []map[string]any{
					{"method": "popup", "minutes": 10},
				},
				"items": []map[string]any{
					{
						"id":          "evt-override",
						"summary":     "Review",
						"description": "notes",
						"htmlLink":    "https://calendar.google.com/event?eid=1",
						"hangoutLink": "https://meet.google.com/abc",
						"start":       map[string]any{"dateTime": "2025-03-10T10:30:00+01:00"},
						"reminders": map[string]any{
							"useDefault": false,
							"overrides": []map[string]any{
								{"method": "email", "minutes": 30},
								{"method": "popup", "minutes": 5},
							},
						},
					},
					{
						"id":        "evt-default",
						"summary":   "Standup",
						"start":     map[string]any{"dateTime": "2025-03-10T09:00:00Z"},
						"reminders": map[string]any{"useDefault": true},
					},
					{
						"id":        "evt-none",
						"summary":   "Quiet",
						"start":     map[string]any{"dateTime": "2025-03-10T11:00:00Z"},
						"reminders": map[string]any{"useDefault": false},
					},
					{
						"id":        "evt-allday",
						"summary":   "Holiday",
						"start":     map[string]any{"date": "2025-03-11"},
						"reminders": map[string]any{"useDefault": true},
					},
					{
						"id":        "evt-birthday",
						"summary":   "Birthday",
						"eventType": "birthday",
						"start":     map[string]any{"date": "2025-03-10"},
					},
					{
						"id":      "evt-cancelled",
						"summary": "Gone",
						"status":  "cancelled",
						"start":   map[string]any{"dateTime": "2025-03-10T12:00:00Z"},
					},
				},
			},
			"other@group": {
				"summary": "RdC",
				"items": []map[string]any{
					{
						"id":    "evt-other",
						"start": map[string]any{"dateTime": "2025-03-10T08:30:00Z"},
						"reminders": map[string]any{
							"overrides": []map[string]any{{"method": "popup", "minutes": 0}},
						},
					},
				},
			},
		},
		calendars: []map[string]any{
			{"id": "team@group", "summary": "RdB"},
			{"id": "other@group", "summary": " RdC "},
		},
	}
}

func newTestSource(t *testing.T, api *fakeCalendarAPI, google config.GoogleCalendarConfig, global, tenants domain.CredentialStore, mappings domain.MappingRepository) *Source {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	google.ClientID = "client"
	google.ClientSecret = "secret"
	if google.MaxEventsPerCalendar == 0 {
		google.MaxEventsPerCalendar = 50
	}

	src := NewSource(&config.CalendarConfig{
		Source:          config.CalendarSourceGoogle,
		LookbackMinutes: 60,
		Google:          google,
	}, global, tenants, mappings, loc)
	src.oauth.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	src.clientOptions = []option.ClientOption{option.WithEndpoint(server.URL + "/")}
	return src
}

var fetchNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func validCredential() *domain.Credential {
	return &domain.Credential{AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer"}
}

func TestFetchEvents_Legacy(t *testing.T) {
	ctrl := gomock.NewController(t)
	global := domain.NewMockCredentialStore(ctrl)
	global.EXPECT().Load(gomock.Any(), "").Return(validCredential(), nil)

	api := newFakeAPI()
	src := newTestSource(t, api, config.GoogleCalendarConfig{CalendarIDs: []string{"team@group"}}, global, nil, nil)

	events, err := src.FetchEvents(context.Background(), "", fetchNow)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	gotIDs := make([]string, 0, len(events))
	for _, ev := range events {
		gotIDs = append(gotIDs, ev.ID)
	}
	wantIDs := []string{"evt-default", "evt-override", "evt-none", "evt-allday"}
	if strings.Join(gotIDs, ",") != strings.Join(wantIDs, ",") {
		t.Fatalf("events: got %v, want %v", gotIDs, wantIDs)
	}

	byID := make(map[string]domain.CalendarEvent)
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	override := byID["evt-override"]
	if len(override.EffectiveReminders) != 2 || *override.EffectiveReminders[0].Minutes != 30 || override.EffectiveReminders[0].Method != domain.ReminderMethodEmail {
		t.Errorf("override reminders: got %+v", override.EffectiveReminders)
	}
	if override.MeetingLink != "https://meet.google.com/abc" {
		t.Errorf("MeetingLink: got %q", override.MeetingLink)
	}
	if override.DetailLink != "https://calendar.google.com/event?eid=1" {
		t.Errorf("DetailLink: got %q", override.DetailLink)
	}
	if override.SourceCalendarID != "team@group" || override.SourceCalendarLabel != "RdB" {
		t.Errorf("source: got %q/%q", override.SourceCalendarID, override.SourceCalendarLabel)
	}

	def := byID["evt-default"]
	if len(def.EffectiveReminders) != 1 || *def.EffectiveReminders[0].Minutes != 10 {
		t.Errorf("default reminders: got %+v", def.EffectiveReminders)
	}

	if n := len(byID["evt-none"].EffectiveReminders); n != 0 {
		t.Errorf("no-default reminders: got %d, want 0", n)
	}

	allDay := byID["evt-allday"]
	if !allDay.AllDay {
		t.Error("AllDay: got false, want true")
	}
	wantMidnight := time.Date(2025, 3, 11, 0, 0, 0, 0, src.loc)
	if !allDay.StartAt.Equal(wantMidnight) {
		t.Errorf("all-day StartAt: got %v, want %v", allDay.StartAt, wantMidnight)
	}

	for _, auth := range api.tokens {
		if auth != "Bearer access-1" {
			t.Errorf("Authorization: got %q, want %q", auth, "Bearer access-1")
		}
	}
}

func TestFetchEvents_LegacyCalendarSelection(t *testing.T) {
	tests := []struct {
		name       string
		google     config.GoogleCalendarConfig
		wantListed []string
		wantErr    error
	}{
		{
			name:       "ids take precedence",
			google:     config.GoogleCalendarConfig{CalendarIDs: []string{"other@group"}, CalendarNames: []string{"RdB"}, CalendarID: "team@group"},
			wantListed: []string{"other@group"},
		},
		{
			name:       "names resolved case-insensitively",
			google:     config.GoogleCalendarConfig{CalendarNames: []string{"rdc", "RdB", "missing"}},
			wantListed: []string{"other@group", "team@group"},
		},
		{
			name:       "unresolved names fall back to single id",
			google:     config.GoogleCalendarConfig{CalendarNames: []string{"missing"}, CalendarID: "team@group"},
			wantListed: []string{"team@group"},
		},
		{
			name:    "nothing configured",
			google:  config.GoogleCalendarConfig{},
			wantErr: domain.ErrNoCalendarsConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			global := domain.NewMockCredentialStore(ctrl)
			global.EXPECT().Load(gomock.Any(), "").Return(validCredential(), nil)

			api := newFakeAPI()
			src := newTestSource(t, api, tt.google, global, nil, nil)

			_, err := src.FetchEvents(context.Background(), "", fetchNow)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if strings.Join(api.listed, ",") != strings.Join(tt.wantListed, ",") {
				t.Errorf("listed calendars: got %v, want %v", api.listed, tt.wantListed)
			}
		})
	}
}

func TestFetchEvents_Tenant(t *testing.T) {
	ctrl := gomock.NewController(t)
	tenants := domain.NewMockCredentialStore(ctrl)
	mappings := domain.NewMockMappingRepository(ctrl)

	mappings.EXPECT().GetActiveMappings(gomock.Any(), "t1").Return([]domain.Mapping{
		{CalendarID: "other@group", ChatID: "-1", Active: true},
		{CalendarID: "other@group", ChatID: "-2", Active: true},
		{CalendarID: "team@group", ChatID: "-1", Active: true},
	}, nil)
	tenants.EXPECT().Load(gomock.Any(), "t1").Return(validCredential(), nil)

	api := newFakeAPI()
	src := newTestSource(t, api, config.GoogleCalendarConfig{CalendarID: "ignored"}, nil, tenants, mappings)

	events, err := src.FetchEvents(context.Background(), "t1", fetchNow)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if got := strings.Join(api.listed, ","); got != "other@group,team@group" {
		t.Errorf("listed calendars: got %s, want %s", got, "other@group,team@group")
	}
	if events[0].ID != "evt-other" {
		t.Errorf("first event: got %q, want %q", events[0].ID, "evt-other")
	}
	if n := len(events[0].EffectiveReminders); n != 1 || *events[0].EffectiveReminders[0].Minutes != 0 {
		t.Errorf("reminders: got %+v", events[0].EffectiveReminders)
	}
}

func TestFetchEvents_TenantWithoutMappings(t *testing.T) {
	ctrl := gomock.NewController(t)
	tenants := domain.NewMockCredentialStore(ctrl)
	mappings := domain.NewMockMappingRepository(ctrl)

	mappings.EXPECT().GetActiveMappings(gomock.Any(), "t1").Return(nil, nil)

	src := newTestSource(t, newFakeAPI(), config.GoogleCalendarConfig{}, nil, tenants, mappings)

	events, err := src.FetchEvents(context.Background(), "t1", fetchNow)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events: got %d, want 0", len(events))
	}
}

func TestFetchEvents_CredentialMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	global := domain.NewMockCredentialStore(ctrl)
	global.EXPECT().Load(gomock.Any(), "").Return(nil, domain.ErrCredentialNotFound)

	src := newTestSource(t, newFakeAPI(), config.GoogleCalendarConfig{CalendarID: "team@group"}, global, nil, nil)

	_, err := src.FetchEvents(context.Background(), "", fetchNow)
	if !errors.Is(err, ErrCredentialLoad) {
		t.Errorf("error: got %v, want %v", err, ErrCredentialLoad)
	}
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("error: got %v, want %v", err, domain.ErrCredentialNotFound)
	}
}

func TestFetchEvents_APIErrorIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	global := domain.NewMockCredentialStore(ctrl)
	global.EXPECT().Load(gomock.Any(), "").Return(validCredential(), nil)

	src := newTestSource(t, newFakeAPI(), config.GoogleCalendarConfig{CalendarIDs: []string{"team@group", "unknown@group"}}, global, nil, nil)

	if _, err := src.FetchEvents(context.Background(), "", fetchNow); err == nil {
		t.Error("expected error for unknown calendar")
	}
}

func TestFetchEvents_PersistsRefreshedToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tenants := domain.NewMockCredentialStore(ctrl)
	mappings := domain.NewMockMappingRepository(ctrl)

	expired := validCredential()
	expired.Expiry = time.Now().Add(-time.Hour)
	expired.Scope = "https://www.googleapis.com/auth/calendar.readonly"

	mappings.EXPECT().GetActiveMappings(gomock.Any(), "t1").Return([]domain.Mapping{{CalendarID: "team@group", ChatID: "-1", Active: true}}, nil)
	tenants.EXPECT().Load(gomock.Any(), "t1").Return(expired, nil)
	tenants.EXPECT().Save(gomock.Any(), "t1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, cred *domain.Credential) error {
			if cred.AccessToken != "refreshed" {
				t.Errorf("saved AccessToken: got %q, want %q", cred.AccessToken, "refreshed")
			}
			if cred.RefreshToken != "refresh-1" {
				t.Errorf("saved RefreshToken: got %q, want %q", cred.RefreshToken, "refresh-1")
			}
			if cred.Scope != expired.Scope {
				t.Errorf("saved Scope: got %q, want %q", cred.Scope, expired.Scope)
			}
			return nil
		},
	).Times(1)

	api := newFakeAPI()
	src := newTestSource(t, api, config.GoogleCalendarConfig{}, nil, tenants, mappings)

	if _, err := src.FetchEvents(context.Background(), "t1", fetchNow); err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	for _, auth := range api.tokens {
		if auth != "Bearer refreshed" {
			t.Errorf("Authorization: got %q, want %q", auth, "Bearer refreshed")
		}
	}
}

func TestFetchEvents_TimeMinFollowsDispatchTime(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"current", fetchNow, "2025-03-10T07:00:00Z"},
		{"replayed past", time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), "2024-01-05T08:30:00Z"},
		{"offset zone", time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60)), "2025-06-01T09:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			global := domain.NewMockCredentialStore(ctrl)
			global.EXPECT().Load(gomock.Any(), "").Return(validCredential(), nil)

			api := newFakeAPI()
			src := newTestSource(t, api, config.GoogleCalendarConfig{CalendarIDs: []string{"team@group"}}, global, nil, nil)

			if _, err := src.FetchEvents(context.Background(), "", tt.now); err != nil {
				t.Fatalf("FetchEvents: %v", err)
			}
			if len(api.timeMins) != 1 || api.timeMins[0] != tt.want {
				t.Errorf("timeMin: got %v, want %q", api.timeMins, tt.want)
			}
		})
	}
}
