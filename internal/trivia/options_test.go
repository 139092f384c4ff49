package trivia_test

import (
	"math/rand"
	"testing"

	"factzap-service/internal/domain"
	"factzap-service/internal/trivia"
)

func TestShuffleOptionsKeepsAllAnswers(t *testing.T) {
	question := domain.Question{
		CorrectAnswer:    "Inca",
		IncorrectAnswers: []string{"Aztec", "Maya", "Olmec"},
	}
	rnd := rand.New(rand.NewSource(1))

	options := trivia.ShuffleOptions(question, rnd)
	if len(options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(options))
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		seen[o] = true
	}
	for _, want := range []string{"Inca", "Aztec", "Maya", "Olmec"} {
		if !seen[want] {
			t.Fatalf("option %q missing from %v", want, options)
		}
	}
}

func TestShuffleOptionsBoolean(t *testing.T) {
	question := domain.Question{
		CorrectAnswer:    "True",
		IncorrectAnswers: []string{"False"},
	}
	options := trivia.ShuffleOptions(question, rand.New(rand.NewSource(1)))
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
}
