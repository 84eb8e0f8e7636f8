package icsfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/observability/tracing"
)

const (
	defaultFetchTimeout = 15 * time.Second
	maxFeedBytes        = 10 << 20
)

// Source reads events from iCalendar subscription feeds. Feeds are global:
// in tenant mode every feed is read and the tenant's mappings select which
// calendars (feed ids) are delivered.
type Source struct {
	feeds      []config.ICSFeed
	httpClient *http.Client
	loc        *time.Location
	lookback   time.Duration
	horizon    time.Duration
}

func NewSource(cfg *config.CalendarConfig, loc *time.Location) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		feeds: cfg.ICS.Feeds,
		httpClient: &http.Client{
			Timeout: defaultFetchTimeout,
		},
		loc:      loc,
		lookback: time.Duration(cfg.LookbackMinutes) * time.Minute,
		horizon:  time.Duration(cfg.ICS.HorizonHours) * time.Hour,
	}
}

var _ domain.CalendarSource = (*Source)(nil)

// FetchEvents returns the event occurrences of every configured feed that
// start within [now-lookback, now+horizon]. A feed that fails to load fails
// the whole fetch.
func (s *Source) FetchEvents(ctx context.Context, tenantID string, now time.Time) ([]domain.CalendarEvent, error) {
	if len(s.feeds) == 0 {
		return nil, domain.ErrNoCalendarsConfigured
	}

	now = now.In(s.loc)
	from := now.Add(-s.lookback)
	to := now.Add(s.horizon)

	var events []domain.CalendarEvent
	for _, feed := range s.feeds {
		feedEvents, err := s.fetchFeed(ctx, feed, from, to)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feed.ID, err)
		}
		events = append(events, feedEvents...)
	}

	slog.DebugContext(ctx, "fetched ics events",
		slog.String("tenant_id", tenantID),
		slog.Int("feed_count", len(s.feeds)),
		slog.Int("event_count", len(events)),
		slog.Time("from", from),
		slog.Time("to", to),
	)

	return events, nil
}

func (s *Source) fetchFeed(ctx context.Context, feed config.ICSFeed, from, to time.Time) ([]domain.CalendarEvent, error) {
	ctx, span := tracing.StartExternalAPISpan(ctx, "ics.fetch_feed", redactURL(feed.URL))
	defer span.End()

	body, err := s.download(ctx, feed.URL)
	if err != nil {
		tracing.RecordResult(span, err)
		return nil, err
	}

	events, err := parseFeed(body, feed, s.loc, from, to)
	tracing.RecordResult(span, err)
	return events, err
}

func (s *Source) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrFeedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	return body, nil
}

func validateICalFormat(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	upper := strings.ToUpper(string(trimmed[:min(len(trimmed), 32)]))
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("%w: received HTML, check whether the URL requires authentication", ErrNotICalendar)
	}
	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		return ErrNotICalendar
	}
	return nil
}

func parseFeed(body []byte, feed config.ICSFeed, loc *time.Location, from, to time.Time) ([]domain.CalendarEvent, error) {
	decoder := ical.NewDecoder(bytes.NewReader(body))

	var parsed []parsedEvent
	for {
		cal, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, err := parseEvent(comp, loc)
			if err != nil {
				slog.Debug("skipping unparseable ics event",
					slog.String("feed_id", feed.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			parsed = append(parsed, ev)
		}
	}

	return expandOccurrences(parsed, feed, from, to), nil
}

// redactURL drops the query string, which commonly carries a private feed token.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
