package domain

import (
	"strconv"
	"strings"
)

// Destination is a chat plus an optional sub-thread (forum topic).
type Destination struct {
	ChatID      string
	SubThreadID *int64
}

func NewDestination(chatID string, subThreadID *int64) Destination {
	return Destination{ChatID: chatID, SubThreadID: subThreadID}
}

func (d Destination) Equal(other Destination) bool {
	if d.ChatID != other.ChatID {
		return false
	}
	if d.SubThreadID == nil || other.SubThreadID == nil {
		return d.SubThreadID == nil && other.SubThreadID == nil
	}
	return *d.SubThreadID == *other.SubThreadID
}

func (d Destination) String() string {
	return d.ChatID + "/" + d.subThreadToken()
}

func (d Destination) subThreadToken() string {
	if d.SubThreadID == nil {
		return "-"
	}
	return strconv.FormatInt(*d.SubThreadID, 10)
}

// DispatchItem is the unit of delivery: one candidate to one destination.
type DispatchItem struct {
	Candidate   Candidate
	Destination Destination
}

// DedupeKey identifies a delivery for the idempotency gate. The fire time is
// bucketed to the minute so clock jitter between runs maps to the same key.
func (i DispatchItem) DedupeKey() string {
	return strings.Join([]string{
		i.Candidate.Event.ID,
		strconv.Itoa(i.Candidate.Minutes),
		strconv.FormatInt(i.Candidate.FireAt.Unix()/60, 10),
		i.Destination.ChatID,
		i.Destination.subThreadToken(),
	}, "|")
}
