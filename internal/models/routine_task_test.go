package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchesDateWeekly(t *testing.T) {
	routine := RoutineTask{
		Frequency: FrequencyWeekly,
		Weekdays:  []int64{1, 5},
	}

	// 2025-03-10 is a Monday.
	assert.True(t, routine.MatchesDate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, routine.MatchesDate(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.False(t, routine.MatchesDate(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestMatchesDateMonthlyAnchor(t *testing.T) {
	routine := RoutineTask{
		Frequency: FrequencyMonthly,
		CreatedAt: time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC),
	}

	assert.True(t, routine.MatchesDate(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, routine.MatchesDate(time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)))
}

func TestMatchesDateMonthlyClampsToShortMonths(t *testing.T) {
	routine := RoutineTask{
		Frequency: FrequencyMonthly,
		CreatedAt: time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC),
	}

	assert.True(t, routine.MatchesDate(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, routine.MatchesDate(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.False(t, routine.MatchesDate(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, routine.MatchesDate(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)))
	assert.True(t, routine.MatchesDate(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, routine.MatchesDate(time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)))
}
