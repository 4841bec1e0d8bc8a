package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		token   string
		want    Duration
		wantErr bool
	}{
		{token: "forever", want: Duration{Kind: DurationOpen}},
		{token: "days:5", want: Duration{Kind: DurationFixed, Count: 5, Unit: UnitDays}},
		{token: "weeks:2", want: Duration{Kind: DurationFixed, Count: 2, Unit: UnitWeeks}},
		{token: "months:3", want: Duration{Kind: DurationFixed, Count: 3, Unit: UnitMonths}},
		{token: "date:2024-06-01", want: Duration{Kind: DurationUntil, Until: date(2024, 6, 1)}},
		{token: "days:0", wantErr: true},
		{token: "days:-1", wantErr: true},
		{token: "fortnights:2", wantErr: true},
		{token: "date:junk", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseDuration(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.token, got.String())
		})
	}
}

func TestResolveEndDate(t *testing.T) {
	start := date(2024, 3, 10)

	tests := []struct {
		name string
		dur  string
		want *time.Time
	}{
		{name: "forever has no end", dur: "forever", want: nil},
		{name: "one day ends on start", dur: "days:1", want: ptr(date(2024, 3, 10))},
		{name: "five days", dur: "days:5", want: ptr(date(2024, 3, 14))},
		{name: "one week", dur: "weeks:1", want: ptr(date(2024, 3, 16))},
		{name: "two weeks", dur: "weeks:2", want: ptr(date(2024, 3, 23))},
		{name: "one month", dur: "months:1", want: ptr(date(2024, 4, 9))},
		{name: "explicit date wins", dur: "date:2024-06-01", want: ptr(date(2024, 6, 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDuration(tt.dur)
			require.NoError(t, err)
			end := ResolveEndDate(start, d)
			if tt.want == nil {
				assert.True(t, end.IsAbsent())
				return
			}
			assert.Equal(t, *tt.want, end.MustGet())
		})
	}
}

func TestEstimateDoses(t *testing.T) {
	every8h, err := ParseRule("8h")
	require.NoError(t, err)
	monWedFri, err := ParseRule("days:Mon,Wed,Fri")
	require.NoError(t, err)
	cycle2w, err := ParseRule("cycle:2weeks")
	require.NoError(t, err)

	assert.Equal(t, 15, EstimateDoses(every8h, 5, UnitDays))
	assert.Equal(t, 6, EstimateDoses(monWedFri, 14, UnitDays))
	assert.Equal(t, 2, EstimateDoses(cycle2w, 28, UnitDays))
	assert.Equal(t, 0, EstimateDoses(every8h, 0, UnitDays))
	assert.Equal(t, 0, EstimateDoses(every8h, 2, UnitWeeks), "only day-denominated durations are estimated")
}

func ptr[T any](v T) *T { return &v }
