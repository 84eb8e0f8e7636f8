package icsfeed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

var (
	errMissingUID   = errors.New("missing UID")
	errMissingStart = errors.New("missing DTSTART")

	urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^\[\]` + "`" + `]+`)
)

type parsedEvent struct {
	UID          string
	Title        string
	Description  string
	Location     string
	URL          string
	Start        time.Time
	AllDay       bool
	Cancelled    bool
	RRule        string
	ExDates      []time.Time
	RecurrenceID *time.Time
	Alarms       []alarm
}

// alarm is a VALARM trigger. Offset is the signed distance from the event
// start (negative means before); Absolute holds a DATE-TIME trigger instead.
type alarm struct {
	Method   domain.ReminderMethod
	Offset   *time.Duration
	Absolute *time.Time
}

func parseEvent(comp *ical.Component, loc *time.Location) (parsedEvent, error) {
	var ev parsedEvent

	uid, _ := comp.Props.Text(ical.PropUID)
	if uid == "" {
		return ev, errMissingUID
	}
	ev.UID = uid

	ev.Title, _ = comp.Props.Text(ical.PropSummary)
	ev.Description, _ = comp.Props.Text(ical.PropDescription)
	ev.Location, _ = comp.Props.Text(ical.PropLocation)
	if p := comp.Props.Get(ical.PropURL); p != nil {
		ev.URL = p.Value
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, errMissingStart
	}
	ev.AllDay = isDateValue(startProp)
	start, err := parseStart(startProp, ev.AllDay, loc)
	if err != nil {
		return ev, fmt.Errorf("invalid DTSTART %q: %w", startProp.Value, err)
	}
	ev.Start = start

	if p := comp.Props.Get(ical.PropStatus); p != nil {
		ev.Cancelled = strings.EqualFold(p.Value, "CANCELLED")
	}

	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range comp.Props.Values(ical.PropExceptionDates) {
		ev.ExDates = append(ev.ExDates, parseDateList(p, loc)...)
	}
	if p := comp.Props.Get(ical.PropRecurrenceID); p != nil {
		if rid, err := p.DateTime(loc); err == nil {
			ev.RecurrenceID = &rid
		}
	}

	for _, child := range comp.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if a, ok := parseAlarm(child); ok {
			ev.Alarms = append(ev.Alarms, a)
		}
	}

	return ev, nil
}

// parseStart reads DTSTART. All-day dates become local midnight in loc.
func parseStart(p *ical.Prop, allDay bool, loc *time.Location) (time.Time, error) {
	if allDay {
		return time.ParseInLocation("20060102", strings.TrimSpace(p.Value), loc)
	}
	return p.DateTime(loc)
}

func isDateValue(p *ical.Prop) bool {
	if strings.EqualFold(p.Params.Get(ical.ParamValue), string(ical.ValueDate)) {
		return true
	}
	return len(p.Value) == len("20060102")
}

// parseDateList splits a multi-valued date property (EXDATE) and parses each
// value with the property's parameters.
func parseDateList(p ical.Prop, loc *time.Location) []time.Time {
	var out []time.Time
	for _, v := range strings.Split(p.Value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		single := ical.Prop{Name: p.Name, Params: p.Params, Value: v}
		if t, err := single.DateTime(loc); err == nil {
			out = append(out, t)
		}
	}
	return out
}

func parseAlarm(comp *ical.Component) (alarm, bool) {
	trigger := comp.Props.Get(ical.PropTrigger)
	if trigger == nil {
		return alarm{}, false
	}

	a := alarm{Method: alarmMethod(comp)}

	if strings.EqualFold(trigger.Params.Get(ical.ParamValue), string(ical.ValueDateTime)) {
		if t, err := trigger.DateTime(time.UTC); err == nil {
			a.Absolute = &t
		}
		return a, true
	}

	// Triggers relative to the event end cannot be expressed as an offset
	// before start, so they are kept without minutes.
	if strings.EqualFold(trigger.Params.Get(ical.ParamRelated), "END") {
		return a, true
	}

	if d, err := trigger.Duration(); err == nil {
		a.Offset = &d
	}
	return a, true
}

func alarmMethod(comp *ical.Component) domain.ReminderMethod {
	p := comp.Props.Get(ical.PropAction)
	if p == nil {
		return domain.ReminderMethodUnknown
	}
	switch strings.ToUpper(p.Value) {
	case "DISPLAY", "AUDIO":
		return domain.ReminderMethodPopup
	case "EMAIL":
		return domain.ReminderMethodEmail
	default:
		return domain.ReminderMethodUnknown
	}
}

// reminders converts the alarms into offsets before the given occurrence start.
func (ev parsedEvent) reminders(start time.Time) []domain.Reminder {
	out := make([]domain.Reminder, 0, len(ev.Alarms))
	for _, a := range ev.Alarms {
		r := domain.Reminder{Method: a.Method}
		switch {
		case a.Offset != nil:
			minutes := int(-a.Offset.Minutes())
			r.Minutes = &minutes
		case a.Absolute != nil:
			minutes := int(start.Sub(*a.Absolute).Minutes())
			r.Minutes = &minutes
		}
		out = append(out, r)
	}
	return out
}

// extractMeetingLink prefers known conferencing hosts, then the first URL.
func extractMeetingLink(texts ...string) string {
	var first string
	for _, text := range texts {
		for _, match := range urlPattern.FindAllString(text, -1) {
			lower := strings.ToLower(match)
			if strings.Contains(lower, "meet.google") ||
				strings.Contains(lower, "zoom.us") ||
				strings.Contains(lower, "teams.microsoft") ||
				strings.Contains(lower, "webex") {
				return match
			}
			if first == "" {
				first = match
			}
		}
	}
	return first
}
