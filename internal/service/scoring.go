package service

import (
	"fmt"

	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

// NetScore computes the net score for a scored task submission: every four
// wrong answers cancel one correct answer. The result is real-valued and
// never truncated.
//
// When totalQuestions is non-nil the three counts must sum to it exactly;
// negative counts are always rejected. Only soru_cozumu and deneme tasks are
// scored; callers must not invoke this for other task types.
func NetScore(correct, wrong, blank int, totalQuestions *int) (float64, error) {
	if correct < 0 || wrong < 0 || blank < 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidSubmission, "answer counts must not be negative")
	}
	if totalQuestions != nil {
		sum := correct + wrong + blank
		if sum != *totalQuestions {
			return 0, appErrors.Clone(appErrors.ErrInvalidSubmission,
				fmt.Sprintf("answer counts sum to %d, expected %d", sum, *totalQuestions))
		}
	}
	return float64(correct) - float64(wrong)/4, nil
}
