package essay

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/admitlens/core/internal/models"
	"github.com/admitlens/core/internal/pkg/response"
)

const (
	// MinEssayChars and MaxEssayChars bound the accepted essay length. The
	// bounds are enforced before any processing; text content is otherwise
	// unconstrained.
	MinEssayChars = 50
	MaxEssayChars = 5000
)

var validate = validator.New()

// EssayInput is the request payload for feedback generation.
type EssayInput struct {
	EssayText string        `json:"essayText"`
	Options   *EssayOptions `json:"options"`
}

type EssayOptions struct {
	Save bool `json:"save"`
}

// ValidateEssayInput enforces the essay length bounds. Failures are
// BadRequest errors with per-field details.
func ValidateEssayInput(in *EssayInput) error {
	n := utf8.RuneCountInString(in.EssayText)
	switch {
	case n < MinEssayChars:
		return response.BadRequest(
			fmt.Sprintf("Essay must be at least %d characters", MinEssayChars),
			map[string]interface{}{"essayText": fmt.Sprintf("got %d characters, need >= %d", n, MinEssayChars)},
		)
	case n > MaxEssayChars:
		return response.BadRequest(
			fmt.Sprintf("Essay must be at most %d characters", MaxEssayChars),
			map[string]interface{}{"essayText": fmt.Sprintf("got %d characters, need <= %d", n, MaxEssayChars)},
		)
	}
	return nil
}

// ValidateFeedback checks a Feedback value against the output contract:
// 3-5 summary bullets of >=2 chars, all three buckets scored 1-5 with at
// least one highlight each. It runs at every generation boundary, on
// internally produced data too; a failure there is a programming defect.
func ValidateFeedback(fb *models.Feedback) error {
	if fb == nil {
		return fmt.Errorf("feedback is nil")
	}
	if err := validate.Struct(fb); err != nil {
		return fmt.Errorf("feedback schema violation: %w", err)
	}
	return nil
}
