// Package schedule holds the pure scheduling core: recurrence rules,
// treatment durations and the expansion of a rule into concrete dose
// instants inside a bounded time window.
//
// Rules and durations travel over the wire and through storage as compact
// string tokens ("8h", "days:Mon,Fri", "cycle:2weeks", "sos"; "forever",
// "days:5", "date:2024-06-01"). Parsing and formatting live here and
// nowhere else; the rest of the module works with the typed values.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the four supported recurrence shapes.
type Kind int

const (
	// KindInterval fires every N hours starting at the anchor time.
	KindInterval Kind = iota
	// KindWeekdays fires once daily at the anchor time on a subset of weekdays.
	KindWeekdays
	// KindCycle fires every N days/weeks/months at the anchor time.
	KindCycle
	// KindSOS never fires on a schedule; doses are logged manually.
	KindSOS
)

// Unit is a calendar unit shared by cyclic rules and fixed durations.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

// Rule is the recurrence pattern of a reminder. Only the fields of the
// active Kind are meaningful.
type Rule struct {
	Kind          Kind
	IntervalHours int            // KindInterval
	Weekdays      []time.Weekday // KindWeekdays, normalized Mon-first
	CycleCount    int            // KindCycle
	CycleUnit     Unit           // KindCycle
}

const sosToken = "sos"

var (
	weekdayTokens = map[string]time.Weekday{
		"Mon": time.Monday, "Tue": time.Tuesday, "Wed": time.Wednesday,
		"Thu": time.Thursday, "Fri": time.Friday, "Sat": time.Saturday,
		"Sun": time.Sunday,
	}
	weekdayNames = map[time.Weekday]string{
		time.Monday: "Mon", time.Tuesday: "Tue", time.Wednesday: "Wed",
		time.Thursday: "Thu", time.Friday: "Fri", time.Saturday: "Sat",
		time.Sunday: "Sun",
	}
	cycleRe    = regexp.MustCompile(`^(\d+)(days|weeks|months)$`)
	intervalRe = regexp.MustCompile(`^(\d+)h$`)
)

// ParseRule decodes a frequency token into a Rule. Malformed tokens and
// non-positive counts are rejected here so that generation never has to
// deal with them.
func ParseRule(token string) (Rule, error) {
	switch {
	case token == sosToken:
		return Rule{Kind: KindSOS}, nil

	case strings.HasPrefix(token, "days:"):
		var days []time.Weekday
		seen := map[time.Weekday]bool{}
		for _, part := range strings.Split(strings.TrimPrefix(token, "days:"), ",") {
			wd, ok := weekdayTokens[part]
			if !ok {
				return Rule{}, fmt.Errorf("parse rule %q: unknown weekday %q", token, part)
			}
			if !seen[wd] {
				seen[wd] = true
				days = append(days, wd)
			}
		}
		sortWeekdays(days)
		return Rule{Kind: KindWeekdays, Weekdays: days}, nil

	case strings.HasPrefix(token, "cycle:"):
		m := cycleRe.FindStringSubmatch(strings.TrimPrefix(token, "cycle:"))
		if m == nil {
			return Rule{}, fmt.Errorf("parse rule %q: want cycle:<N><days|weeks|months>", token)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Rule{}, fmt.Errorf("parse rule %q: cycle count must be positive", token)
		}
		return Rule{Kind: KindCycle, CycleCount: n, CycleUnit: Unit(m[2])}, nil

	default:
		m := intervalRe.FindStringSubmatch(token)
		if m == nil {
			return Rule{}, fmt.Errorf("parse rule %q: unrecognized frequency token", token)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Rule{}, fmt.Errorf("parse rule %q: interval hours must be positive", token)
		}
		return Rule{Kind: KindInterval, IntervalHours: n}, nil
	}
}

// String encodes the rule back into its wire token. ParseRule(r.String())
// round-trips for any rule produced by ParseRule.
func (r Rule) String() string {
	switch r.Kind {
	case KindSOS:
		return sosToken
	case KindWeekdays:
		names := make([]string, 0, len(r.Weekdays))
		for _, wd := range r.Weekdays {
			names = append(names, weekdayNames[wd])
		}
		return "days:" + strings.Join(names, ",")
	case KindCycle:
		return fmt.Sprintf("cycle:%d%s", r.CycleCount, r.CycleUnit)
	default:
		return fmt.Sprintf("%dh", r.IntervalHours)
	}
}

// IsSOS reports whether the rule is on-demand only.
func (r Rule) IsSOS() bool { return r.Kind == KindSOS }

func sortWeekdays(days []time.Weekday) {
	// Monday-first ordering, matching the wire format.
	sort.Slice(days, func(i, j int) bool {
		return (days[i]+6)%7 < (days[j]+6)%7
	})
}

// TimeOfDay is the daily anchor of a reminder ("08:00").
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay decodes an HH:MM anchor.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of this anchor on the calendar day of ref,
// preserving ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}
