package icsfeed

import "errors"

var (
	ErrNotICalendar = errors.New("response is not iCalendar data")
	ErrFeedStatus   = errors.New("unexpected feed status")
)
