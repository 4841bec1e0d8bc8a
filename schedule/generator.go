package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// rruleWeekdays maps time.Weekday onto rrule's weekday constants.
var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Generate expands a rule into the ordered dose instants inside
// [start, end). The first candidate is the anchor time on start's calendar
// day, which may fall slightly before start itself; callers that only want
// future doses filter on insert. SOS rules, empty weekday sets, non-positive
// counts and empty windows all expand to nothing rather than erroring, so a
// degenerate rule can never loop forever.
func Generate(rule Rule, anchor TimeOfDay, start, end time.Time) ([]time.Time, error) {
	if !start.Before(end) {
		return nil, nil
	}
	first := anchor.On(start)

	var opt rrule.ROption
	switch rule.Kind {
	case KindSOS:
		return nil, nil

	case KindInterval:
		if rule.IntervalHours <= 0 {
			return nil, nil
		}
		opt = rrule.ROption{Freq: rrule.HOURLY, Interval: rule.IntervalHours, Dtstart: first}

	case KindWeekdays:
		if len(rule.Weekdays) == 0 {
			return nil, nil
		}
		byday := make([]rrule.Weekday, 0, len(rule.Weekdays))
		for _, wd := range rule.Weekdays {
			byday = append(byday, rruleWeekdays[wd])
		}
		opt = rrule.ROption{Freq: rrule.WEEKLY, Byweekday: byday, Dtstart: first}

	case KindCycle:
		// Cycles add the unit to the previous occurrence, clamping month
		// overflow (Jan 31 + 1 month = Feb 29/28), which RRULE's
		// skip-missing-day monthly semantics would not do.
		return generateCycle(rule, first, end), nil

	default:
		return nil, fmt.Errorf("generate: unknown rule kind %d", rule.Kind)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("generate: build rrule for %q: %w", rule, err)
	}

	// Between is asked inclusively on both ends; the window's upper bound
	// is exclusive, so trim it back.
	occurrences := r.Between(first, end, true)
	out := occurrences[:0]
	for _, t := range occurrences {
		if t.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func generateCycle(rule Rule, first, end time.Time) []time.Time {
	if rule.CycleCount <= 0 {
		return nil
	}
	var out []time.Time
	for t := first; t.Before(end); {
		out = append(out, t)
		switch rule.CycleUnit {
		case UnitWeeks:
			t = t.AddDate(0, 0, rule.CycleCount*7)
		case UnitMonths:
			t = addMonthsClamped(t, rule.CycleCount)
		default:
			t = t.AddDate(0, 0, rule.CycleCount)
		}
	}
	return out
}

// addMonthsClamped adds n months, clamping the day of month to the target
// month's length instead of letting time.AddDate normalize into the month
// after.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(firstOfTarget); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
