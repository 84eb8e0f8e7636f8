package icsfeed

import (
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
)

const (
	occurrenceIDLayout    = "20060102T150405Z"
	maxOccurrencesPerRule = 500
)

// expandOccurrences turns parsed VEVENTs into concrete events starting in
// [from, to]. Recurring events get one event per occurrence with the id
// <uid>_<startUTC>; RECURRENCE-ID overrides replace the matching occurrence.
func expandOccurrences(events []parsedEvent, feed config.ICSFeed, from, to time.Time) []domain.CalendarEvent {
	overrides := make(map[string]parsedEvent)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[occurrenceID(ev.UID, *ev.RecurrenceID)] = ev
		}
	}

	var out []domain.CalendarEvent
	for _, ev := range events {
		switch {
		case ev.RecurrenceID != nil:
			if inRange(ev.Start, from, to) && !ev.Cancelled {
				out = append(out, toCalendarEvent(ev, occurrenceID(ev.UID, *ev.RecurrenceID), ev.Start, feed))
			}
		case ev.RRule != "":
			for _, start := range occurrences(ev, from, to) {
				id := occurrenceID(ev.UID, start)
				if _, overridden := overrides[id]; overridden || ev.Cancelled {
					continue
				}
				out = append(out, toCalendarEvent(ev, id, start, feed))
			}
		default:
			if inRange(ev.Start, from, to) && !ev.Cancelled {
				out = append(out, toCalendarEvent(ev, ev.UID, ev.Start, feed))
			}
		}
	}
	return out
}

func occurrences(ev parsedEvent, from, to time.Time) []time.Time {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		slog.Debug("failed to parse RRULE",
			slog.String("uid", ev.UID),
			slog.String("rrule", ev.RRule),
			slog.String("error", err.Error()),
		)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	times := set.Between(from.In(ev.Start.Location()), to.In(ev.Start.Location()), true)
	if len(times) > maxOccurrencesPerRule {
		times = times[:maxOccurrencesPerRule]
	}
	return times
}

func toCalendarEvent(ev parsedEvent, id string, start time.Time, feed config.ICSFeed) domain.CalendarEvent {
	label := feed.Name
	if label == "" {
		label = feed.ID
	}
	return domain.CalendarEvent{
		ID:                  id,
		Title:               ev.Title,
		Description:         ev.Description,
		StartAt:             start,
		AllDay:              ev.AllDay,
		MeetingLink:         extractMeetingLink(ev.Location, ev.Description),
		DetailLink:          ev.URL,
		EffectiveReminders:  ev.reminders(start),
		SourceCalendarID:    feed.ID,
		SourceCalendarLabel: label,
	}
}

func occurrenceID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format(occurrenceIDLayout)
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
