package app

import (
	"fmt"

	"factzap-service/internal/domain"
)

// questionTimeSeconds is the per-question countdown length.
const questionTimeSeconds = 10

// Score maps (difficulty, type, time remaining) to a point value.
// Anything outside the known difficulty/type vocabulary is a programming
// error and fails fast instead of defaulting.
func Score(difficulty, qtype string, timeRemaining int) (int, error) {
	var difficultyPoints int
	switch difficulty {
	case "easy":
		difficultyPoints = 1
	case "medium":
		difficultyPoints = 2
	case "hard":
		difficultyPoints = 3
	default:
		return 0, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, difficulty)
	}

	var typePoints int
	switch qtype {
	case "boolean":
		typePoints = 1
	case "multiple":
		typePoints = 2
	default:
		return 0, fmt.Errorf("%w: unknown question type %q", domain.ErrInvalidInput, qtype)
	}

	if timeRemaining < 0 || timeRemaining > questionTimeSeconds {
		return 0, fmt.Errorf("%w: time remaining %d out of range", domain.ErrInvalidInput, timeRemaining)
	}

	timeBonus := timeRemaining / questionTimeSeconds
	return difficultyPoints + typePoints + timeBonus, nil
}
