package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	calendarSourceEnv       = "CALENDAR_SOURCE"
	googleClientIDEnv       = "GOOGLE_CLIENT_ID"
	googleClientSecretEnv   = "GOOGLE_CLIENT_SECRET"
	googleRedirectURIEnv    = "GOOGLE_REDIRECT_URI"
	googleCalendarIDsEnv    = "GOOGLE_CALENDAR_IDS"
	googleCalendarNamesEnv  = "GOOGLE_CALENDAR_NAMES"
	googleCalendarIDEnv     = "GOOGLE_CALENDAR_ID"
	googleMaxEventsEnv      = "GOOGLE_MAX_EVENTS_PER_CALENDAR"
	calendarLookbackMinsEnv = "CALENDAR_LOOKBACK_MINUTES"
	icsFeedsEnv             = "ICS_FEEDS"
	icsHorizonHoursEnv      = "ICS_HORIZON_HOURS"

	defaultGoogleMaxEvents      = 50
	defaultCalendarLookbackMins = 60
	defaultICSHorizonHours      = 48
)

type CalendarSourceKind string

const (
	CalendarSourceGoogle CalendarSourceKind = "google"
	CalendarSourceICS    CalendarSourceKind = "ics"
)

type CalendarConfig struct {
	Source CalendarSourceKind
	// LookbackMinutes widens the fetch lower bound so reminders of events that
	// already started can still fall inside the rolling window.
	LookbackMinutes int
	Google          GoogleCalendarConfig
	ICS             ICSConfig
}

type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Legacy calendar selection, in precedence order.
	CalendarIDs          []string
	CalendarNames        []string
	CalendarID           string
	MaxEventsPerCalendar int
}

type ICSFeed struct {
	ID   string
	Name string
	URL  string
}

type ICSConfig struct {
	Feeds        []ICSFeed
	HorizonHours int
}

func LoadCalendarConfig() (*CalendarConfig, error) {
	source := CalendarSourceKind(strings.ToLower(os.Getenv(calendarSourceEnv)))
	if source == "" {
		source = CalendarSourceGoogle
	}
	if source != CalendarSourceGoogle && source != CalendarSourceICS {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalendarSource, source)
	}

	feeds, err := parseICSFeeds(os.Getenv(icsFeedsEnv))
	if err != nil {
		return nil, err
	}

	return &CalendarConfig{
		Source:          source,
		LookbackMinutes: intFromEnv(calendarLookbackMinsEnv, defaultCalendarLookbackMins, nonNegative),
		Google: GoogleCalendarConfig{
			ClientID:             os.Getenv(googleClientIDEnv),
			ClientSecret:         os.Getenv(googleClientSecretEnv),
			RedirectURI:          os.Getenv(googleRedirectURIEnv),
			CalendarIDs:          splitList(os.Getenv(googleCalendarIDsEnv)),
			CalendarNames:        splitList(os.Getenv(googleCalendarNamesEnv)),
			CalendarID:           strings.TrimSpace(os.Getenv(googleCalendarIDEnv)),
			MaxEventsPerCalendar: intFromEnv(googleMaxEventsEnv, defaultGoogleMaxEvents, positive),
		},
		ICS: ICSConfig{
			Feeds:        feeds,
			HorizonHours: intFromEnv(icsHorizonHoursEnv, defaultICSHorizonHours, positive),
		},
	}, nil
}

func (c *CalendarConfig) Validate() error {
	switch c.Source {
	case CalendarSourceGoogle:
		if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
			return ErrGoogleOAuthMissing
		}
	case CalendarSourceICS:
		if len(c.ICS.Feeds) == 0 {
			return ErrICSFeedsMissing
		}
	default:
		return ErrUnknownCalendarSource
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseICSFeeds(raw string) ([]ICSFeed, error) {
	var feeds []ICSFeed
	for _, entry := range splitList(raw) {
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidICSFeed, entry)
		}
		feeds = append(feeds, ICSFeed{
			ID:   strings.TrimSpace(parts[0]),
			Name: strings.TrimSpace(parts[1]),
			URL:  strings.TrimSpace(parts[2]),
		})
	}
	return feeds, nil
}
