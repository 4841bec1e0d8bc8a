package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// DurationKind discriminates how long a reminder keeps recurring.
type DurationKind int

const (
	// DurationOpen means no end date.
	DurationOpen DurationKind = iota
	// DurationFixed means a fixed count of days/weeks/months from the start.
	DurationFixed
	// DurationUntil means an explicit end date.
	DurationUntil
)

// Duration is a reminder's duration specification.
type Duration struct {
	Kind  DurationKind
	Count int       // DurationFixed
	Unit  Unit      // DurationFixed
	Until time.Time // DurationUntil, date-only
}

const (
	foreverToken = "forever"
	untilPrefix  = "date:"
	dateLayout   = "2006-01-02"
)

// ParseDuration decodes a duration token: "forever", "<unit>:<N>" or
// "date:<YYYY-MM-DD>".
func ParseDuration(token string) (Duration, error) {
	if token == foreverToken {
		return Duration{Kind: DurationOpen}, nil
	}
	if strings.HasPrefix(token, untilPrefix) {
		d, err := time.Parse(dateLayout, strings.TrimPrefix(token, untilPrefix))
		if err != nil {
			return Duration{}, fmt.Errorf("parse duration %q: %w", token, err)
		}
		return Duration{Kind: DurationUntil, Until: d}, nil
	}
	unit, count, ok := strings.Cut(token, ":")
	if !ok {
		return Duration{}, fmt.Errorf("parse duration %q: unrecognized token", token)
	}
	switch Unit(unit) {
	case UnitDays, UnitWeeks, UnitMonths:
	default:
		return Duration{}, fmt.Errorf("parse duration %q: unknown unit %q", token, unit)
	}
	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return Duration{}, fmt.Errorf("parse duration %q: count must be positive", token)
	}
	return Duration{Kind: DurationFixed, Count: n, Unit: Unit(unit)}, nil
}

// String encodes the duration back into its wire token.
func (d Duration) String() string {
	switch d.Kind {
	case DurationFixed:
		return fmt.Sprintf("%s:%d", d.Unit, d.Count)
	case DurationUntil:
		return untilPrefix + d.Until.Format(dateLayout)
	default:
		return foreverToken
	}
}

// ResolveEndDate computes the inclusive last calendar day of a treatment.
// None means open-ended. Fixed counts are inclusive of the start day, so a
// one-day duration ends on the start date itself; weeks and months use
// calendar addition and then step back one day.
func ResolveEndDate(start time.Time, d Duration) mo.Option[time.Time] {
	switch d.Kind {
	case DurationFixed:
		switch d.Unit {
		case UnitWeeks:
			return mo.Some(start.AddDate(0, 0, d.Count*7-1))
		case UnitMonths:
			return mo.Some(start.AddDate(0, d.Count, 0).AddDate(0, 0, -1))
		default:
			return mo.Some(start.AddDate(0, 0, d.Count-1))
		}
	case DurationUntil:
		return mo.Some(d.Until)
	default:
		return mo.None[time.Time]()
	}
}

// EstimateDoses is a UI-facing estimate of how many doses a rule produces
// over a day-denominated duration. It is advisory only and never feeds
// generation; exact occurrence counts come from Generate.
func EstimateDoses(r Rule, durationValue int, durationUnit Unit) int {
	if durationValue <= 0 || durationUnit != UnitDays {
		return 0
	}

	var perDay float64
	switch r.Kind {
	case KindInterval:
		if r.IntervalHours > 0 {
			perDay = 24 / float64(r.IntervalHours)
		}
	case KindWeekdays:
		perDay = float64(len(r.Weekdays)) / 7
	case KindCycle:
		daysInCycle := r.CycleCount
		switch r.CycleUnit {
		case UnitWeeks:
			daysInCycle = r.CycleCount * 7
		case UnitMonths:
			daysInCycle = r.CycleCount * 30 // approximation for preview
		}
		if daysInCycle > 0 {
			perDay = 1 / float64(daysInCycle)
		}
	}

	return int(perDay * float64(durationValue))
}
