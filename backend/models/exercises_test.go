package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExerciseType(t *testing.T) {
	cases := map[string]string{
		"translate":           TypeTranslate,
		"traduci":             TypeTranslate,
		"traduzione":          TypeTranslate,
		"completa la frase":   TypeFillBlank,
		"fill-blank":          TypeFillBlank,
		"ascolta e ordina":    TypeListenOrder,
		"seleziona le coppie": TypeMatchPairs,
		"match_pairs":         TypeMatchPairs,
	}

	for tag, want := range cases {
		got, err := NormalizeExerciseType(tag)
		assert.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}
}

func TestNormalizeExerciseTypeUnknown(t *testing.T) {
	_, err := NormalizeExerciseType("cruciverba")
	assert.Error(t, err)
}

func TestPairSolution(t *testing.T) {
	exercise := Exercise{
		Type:     TypeMatchPairs,
		Solution: `{"cat":"gatto","dog":"cane"}`,
	}

	pairs, err := exercise.PairSolution()
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"cat": "gatto", "dog": "cane"}, pairs)

	exercise.Solution = "not json"
	_, err = exercise.PairSolution()
	assert.Error(t, err)
}
