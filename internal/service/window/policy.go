package window

import (
	"time"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
)

const (
	DefaultMorningStartHour  = 6
	DefaultMorningEndHour    = 8
	DefaultMorningCutoffHour = 13
	DefaultLookback          = 60 * time.Minute
	DefaultLookahead         = 10 * time.Minute
)

// Policy decides which fire times are due at a given instant.
//
// Manual runs cover the whole local day. Automatic runs between
// MorningStartHour and MorningEndHour catch up on everything from midnight
// to MorningCutoffHour; otherwise they use a rolling window around now.
type Policy struct {
	MorningStartHour  int
	MorningEndHour    int
	MorningCutoffHour int
	Lookback          time.Duration
	Lookahead         time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MorningStartHour:  DefaultMorningStartHour,
		MorningEndHour:    DefaultMorningEndHour,
		MorningCutoffHour: DefaultMorningCutoffHour,
		Lookback:          DefaultLookback,
		Lookahead:         DefaultLookahead,
	}
}

func NewPolicy(cfg *config.DispatchConfig) Policy {
	if cfg == nil {
		return DefaultPolicy()
	}
	return Policy{
		MorningStartHour:  cfg.MorningStartHour,
		MorningEndHour:    cfg.MorningEndHour,
		MorningCutoffHour: cfg.MorningCutoffHour,
		Lookback:          time.Duration(cfg.LookbackMinutes) * time.Minute,
		Lookahead:         time.Duration(cfg.LookaheadMinutes) * time.Minute,
	}
}

// Compute returns the due window for now. All arithmetic happens in
// now.Location(), so callers convert to the wall clock they care about first.
func (p Policy) Compute(now time.Time, mode domain.Mode) domain.Window {
	midnight := startOfDay(now)

	if mode == domain.ModeManual {
		return domain.Window{
			From: midnight,
			To:   midnight.AddDate(0, 0, 1).Add(-time.Millisecond),
		}
	}

	if h := now.Hour(); h >= p.MorningStartHour && h < p.MorningEndHour {
		return domain.Window{
			From: midnight,
			To:   atHour(midnight, p.MorningCutoffHour),
		}
	}

	return domain.Window{
		From: now.Add(-p.Lookback),
		To:   now.Add(p.Lookahead),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atHour(midnight time.Time, hour int) time.Time {
	y, m, d := midnight.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, midnight.Location())
}
