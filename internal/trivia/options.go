package trivia

import (
	"math/rand"

	"factzap-service/internal/domain"
)

// ShuffleOptions merges the correct and incorrect answers of a question into
// one randomly ordered display list. Boolean questions yield two options,
// multiple-choice four.
func ShuffleOptions(q domain.Question, rnd *rand.Rand) []string {
	options := make([]string, 0, len(q.IncorrectAnswers)+1)
	options = append(options, q.CorrectAnswer)
	options = append(options, q.IncorrectAnswers...)
	rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}
