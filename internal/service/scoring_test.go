package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestNetScore(t *testing.T) {
	cases := []struct {
		name     string
		correct  int
		wrong    int
		blank    int
		total    *int
		expected float64
	}{
		{name: "quarter penalty", correct: 18, wrong: 2, blank: 0, total: intPtr(20), expected: 17.5},
		{name: "fractional net", correct: 12, wrong: 3, blank: 0, total: intPtr(15), expected: 11.25},
		{name: "all blank", correct: 0, wrong: 0, blank: 10, total: intPtr(10), expected: 0},
		{name: "four wrong cancel one correct", correct: 10, wrong: 4, blank: 6, total: intPtr(20), expected: 9},
		{name: "no declared total", correct: 7, wrong: 1, blank: 2, total: nil, expected: 6.75},
		{name: "more wrong than correct", correct: 1, wrong: 8, blank: 0, total: intPtr(9), expected: -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := NetScore(tc.correct, tc.wrong, tc.blank, tc.total)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, score)
		})
	}
}

func TestNetScoreCountMismatch(t *testing.T) {
	_, err := NetScore(10, 5, 0, intPtr(20))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidSubmission.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "15")
	assert.Contains(t, appErr.Message, "20")
}

func TestNetScoreNegativeCounts(t *testing.T) {
	for _, counts := range [][3]int{{-1, 0, 0}, {0, -2, 0}, {0, 0, -3}} {
		_, err := NetScore(counts[0], counts[1], counts[2], nil)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidSubmission.Code, appErrors.FromError(err).Code)
	}
}
