package domain

import "time"

type ReminderMethod string

const (
	ReminderMethodEmail   ReminderMethod = "email"
	ReminderMethodPopup   ReminderMethod = "popup"
	ReminderMethodUnknown ReminderMethod = "unknown"
)

func ParseReminderMethod(s string) ReminderMethod {
	switch ReminderMethod(s) {
	case ReminderMethodEmail, ReminderMethodPopup:
		return ReminderMethod(s)
	default:
		return ReminderMethodUnknown
	}
}

// Reminder is an offset before the event start. Minutes is nil when the
// source did not provide a usable value.
type Reminder struct {
	Method  ReminderMethod
	Minutes *int
}

func NewReminder(method ReminderMethod, minutes int) Reminder {
	return Reminder{Method: method, Minutes: &minutes}
}

type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	// StartAt is local midnight of the date for all-day events.
	StartAt             time.Time
	AllDay              bool
	MeetingLink         string
	DetailLink          string
	EffectiveReminders  []Reminder
	SourceCalendarID    string
	SourceCalendarLabel string
}

// Candidate is one (event, reminder offset) pair with its computed fire time.
type Candidate struct {
	Event   CalendarEvent
	Minutes int
	FireAt  time.Time
}

func NewCandidate(event CalendarEvent, minutes int) Candidate {
	return Candidate{
		Event:   event,
		Minutes: minutes,
		FireAt:  event.StartAt.Add(-time.Duration(minutes) * time.Minute),
	}
}
