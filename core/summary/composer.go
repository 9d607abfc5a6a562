// Package summary produces the driver and operator messages of a plan. An
// optional language-model backend may phrase them; the deterministic
// formatter is always available and absorbs every backend failure.
package summary

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
)

// Context is the planning state a summarizer phrases.
type Context struct {
	SoC          float64
	EtaMin       float64
	Station      model.StationCandidate
	Reserved     bool
	PolicyReason string
}

// Summarizer is a pluggable phrasing backend. Implementations may fail or
// time out; callers must treat any error as "use the fallback".
type Summarizer interface {
	TrySummarize(ctx context.Context, sc Context) (driver, operator string, err error)
}

// Composer selects the reference station for a run and produces its two
// summaries, preferring the backend and falling back deterministically.
type Composer struct {
	backend Summarizer
	timeout time.Duration
	log     logger.Logger
}

// NewComposer creates a Composer. backend may be nil, in which case only the
// deterministic path runs. timeout bounds each backend call.
func NewComposer(backend Summarizer, timeout time.Duration, log logger.Logger) *Composer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Composer{backend: backend, timeout: timeout, log: log}
}

// Compose returns the driver and operator summaries, both truncated to the
// plan schema limit and never empty. Backend failures are absorbed: the
// caller always gets the deterministic text at worst.
func (c *Composer) Compose(ctx context.Context, sc Context) (driver, operator string) {
	if c.backend != nil {
		bctx, cancel := context.WithTimeout(ctx, c.timeout)
		d, o, err := c.backend.TrySummarize(bctx, sc)
		cancel()
		if err == nil && d != "" && o != "" {
			return Truncate(d), Truncate(o)
		}
		if err != nil {
			c.log.Warnf("summary backend failed, using deterministic text: %v", err)
		}
	}
	return Deterministic(sc)
}

// Deterministic formats the two fixed-template summaries.
func Deterministic(sc Context) (driver, operator string) {
	st := sc.Station
	if sc.Reserved {
		driver = fmt.Sprintf("Reserved %s, start in %s-%smin (%s)",
			st.Name, minutes(st.P50WaitMin), minutes(st.P90WaitMin), st.ColorBand)
	} else {
		driver = fmt.Sprintf("Try %s, likely %s-%smin wait (%s)",
			st.Name, minutes(st.P50WaitMin), minutes(st.P90WaitMin), st.ColorBand)
	}
	operator = fmt.Sprintf("SOC %s%%, ETA %smin, P50 wait %smin. %s",
		number(sc.SoC), number(sc.EtaMin), number(st.P50WaitMin), sc.PolicyReason)
	return Truncate(driver), Truncate(operator)
}

// Truncate cuts s to the plan summary limit, counting characters rather
// than bytes so a multibyte station name is never split mid-rune.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= model.MaxSummaryLen {
		return s
	}
	return string([]rune(s)[:model.MaxSummaryLen])
}

// minutes renders a wait figure compactly: whole numbers lose the decimal.
func minutes(v float64) string { return number(v) }

func number(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
