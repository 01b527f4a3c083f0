package schedule

import (
	"errors"
	"fmt"
	"time"
)

// TimeLayout is how the engine stores timestamps in sqlite.
const TimeLayout = "2006-01-02 15:04:05"

var ErrBadTimestamp = errors.New("unrecognized timestamp")

// Clock supplies "now" so tests can freeze time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Zoned is a resolved local/absolute timestamp pair.
type Zoned struct {
	Local time.Time
	UTC   time.Time
}

func (z Zoned) LocalString() string { return z.Local.Format(TimeLayout) }
func (z Zoned) UTCString() string   { return z.UTC.Format(TimeLayout) }

// Resolver converts caller-supplied wall-clock values into Zoned pairs
// against a fixed civil-zone offset.
type Resolver struct {
	Loc   *time.Location
	Clock Clock
}

func NewResolver(offsetMin int, name string, clock Clock) *Resolver {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Resolver{
		Loc:   time.FixedZone(name, offsetMin*60),
		Clock: clock,
	}
}

// civil layouts accepted for "date+time without zone" input
var civilLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Resolve accepts an absolute RFC3339 timestamp or a civil wall-clock string
// interpreted in the resolver's zone. The bool reports whether the resolved
// instant is strictly after now.
func (r *Resolver) Resolve(input string) (Zoned, bool, error) {
	var t time.Time

	parsed := false
	if abs, err := time.Parse(time.RFC3339, input); err == nil {
		t = abs
		parsed = true
	} else {
		for _, layout := range civilLayouts {
			if civil, err := time.ParseInLocation(layout, input, r.Loc); err == nil {
				t = civil
				parsed = true
				break
			}
		}
	}
	if !parsed {
		return Zoned{}, false, fmt.Errorf("%w: %q", ErrBadTimestamp, input)
	}

	z := Zoned{
		Local: t.In(r.Loc),
		UTC:   t.UTC(),
	}
	return z, t.After(r.Clock.Now()), nil
}

// Now is the zero-argument variant used to stamp writes.
func (r *Resolver) Now() Zoned {
	now := r.Clock.Now()
	return Zoned{
		Local: now.In(r.Loc),
		UTC:   now.UTC(),
	}
}
