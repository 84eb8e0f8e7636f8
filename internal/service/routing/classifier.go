package routing

import (
	"strings"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
)

// Title tags, matched case-insensitively in this order.
var titleTags = []struct {
	tag      string
	category domain.Category
}{
	{"[all]", domain.CategoryGeneral},
	{"[generale]", domain.CategoryGeneral},
	{"[rdb]", domain.CategoryRdB},
	{"[rdc]", domain.CategoryRdC},
}

// Classify picks the legacy category of an event. A title tag wins over the
// calendar label, which wins over the fallback. CategoryNone means the event
// has no destination.
func Classify(title, calendarLabel string, labels map[string]domain.Category, fallback domain.Category) domain.Category {
	lower := strings.ToLower(title)
	for _, t := range titleTags {
		if strings.Contains(lower, t.tag) {
			return t.category
		}
	}

	if c, ok := labels[strings.TrimSpace(calendarLabel)]; ok && c != domain.CategoryNone {
		return c
	}

	return fallback
}

type Classifier struct {
	labels   map[string]domain.Category
	fallback domain.Category
}

func NewClassifier(cfg *config.LegacyConfig) *Classifier {
	labelCfg := config.DefaultCalendarLabels()
	fallback := domain.CategoryNone
	if cfg != nil {
		if len(cfg.CalendarLabels) > 0 {
			labelCfg = cfg.CalendarLabels
		}
		fallback = domain.ParseCategory(cfg.DefaultCategory)
	}

	labels := make(map[string]domain.Category, len(labelCfg))
	for name, c := range labelCfg {
		labels[name] = domain.ParseCategory(c)
	}

	return &Classifier{labels: labels, fallback: fallback}
}

func (c *Classifier) Classify(ev domain.CalendarEvent) domain.Category {
	return Classify(ev.Title, ev.SourceCalendarLabel, c.labels, c.fallback)
}
