package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

const (
	DefaultDescriptionLimit = 800

	dateTimeLayout = "Mon 02 Jan 2006 15:04"
	dateLayout     = "Mon 02 Jan 2006"
	untitled       = "(untitled)"
)

// Composer renders reminders as Telegram HTML.
type Composer struct {
	loc              *time.Location
	descriptionLimit int
}

func New(loc *time.Location, descriptionLimit int) *Composer {
	if loc == nil {
		loc = time.Local
	}
	if descriptionLimit <= 0 {
		descriptionLimit = DefaultDescriptionLimit
	}
	return &Composer{loc: loc, descriptionLimit: descriptionLimit}
}

func (c *Composer) Compose(ev domain.CalendarEvent, minutes int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Reminder</b> (%s)\n", OffsetText(minutes))

	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = untitled
	}
	fmt.Fprintf(&b, "<b>%s</b>\n", escapeText(title))

	if !ev.StartAt.IsZero() {
		layout := dateTimeLayout
		if ev.AllDay {
			layout = dateLayout
		}
		fmt.Fprintf(&b, "🗓️ %s\n", ev.StartAt.In(c.loc).Format(layout))
	}

	if desc := SanitizeDescription(ev.Description, c.descriptionLimit); desc != "" {
		fmt.Fprintf(&b, "\n%s\n", desc)
	}

	if ev.MeetingLink != "" {
		fmt.Fprintf(&b, "\n📹 <a href=\"%s\">Join meeting</a>", escapeAttr(ev.MeetingLink))
	}
	if ev.DetailLink != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Open event</a>", escapeAttr(ev.DetailLink))
	}

	return strings.TrimRight(b.String(), "\n")
}

// OffsetText describes how long before the start a reminder fires.
func OffsetText(minutes int) string {
	switch {
	case minutes <= 0:
		return "now"
	case minutes < 60:
		return fmt.Sprintf("%d min before", minutes)
	case minutes%60 == 0:
		return fmt.Sprintf("%dh before", minutes/60)
	default:
		return fmt.Sprintf("%dh %dm before", minutes/60, minutes%60)
	}
}
