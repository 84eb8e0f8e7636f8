package expand

import (
	"sort"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

// Expand turns each event's effective reminders into candidates. Reminders
// without minutes, or with a negative offset, produce nothing.
func Expand(events []domain.CalendarEvent) []domain.Candidate {
	var candidates []domain.Candidate
	for _, ev := range events {
		if ev.StartAt.IsZero() {
			continue
		}
		for _, r := range ev.EffectiveReminders {
			if r.Minutes == nil || *r.Minutes < 0 {
				continue
			}
			candidates = append(candidates, domain.NewCandidate(ev, *r.Minutes))
		}
	}
	return candidates
}

// FilterDue keeps the candidates whose fire time is inside w.
func FilterDue(candidates []domain.Candidate, w domain.Window) []domain.Candidate {
	due := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if w.Contains(c.FireAt) {
			due = append(due, c)
		}
	}
	return due
}

// SortCandidates orders by fire time, then event id, then offset.
func SortCandidates(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.FireAt.Equal(b.FireAt) {
			return a.FireAt.Before(b.FireAt)
		}
		if a.Event.ID != b.Event.ID {
			return a.Event.ID < b.Event.ID
		}
		return a.Minutes < b.Minutes
	})
}
