package controllers

import (
	"encoding/json"
	"strings"

	"lingua/backend/models"
)

// AnswerInput — тело запроса с ответом. Заполненное поле зависит от типа
// упражнения: tokens для translate/listen_order, selected для fill_blank,
// pairs для match_pairs.
type AnswerInput struct {
	Tokens   []string   `json:"tokens"`
	Selected []string   `json:"selected"`
	Pairs    [][]string `json:"pairs"`
}

// normalizeAnswer приводит ответ к строке, которая сохраняется в попытке.
// ok == false, если форма ответа не соответствует типу упражнения.
func normalizeAnswer(exerciseType string, input AnswerInput) (string, bool) {
	switch exerciseType {
	case models.TypeTranslate, models.TypeListenOrder:
		if len(input.Tokens) == 0 {
			return "", false
		}
		return strings.Join(input.Tokens, " "), true
	case models.TypeFillBlank:
		// ровно один выбранный вариант, иначе ответ не засчитывается
		if len(input.Selected) != 1 {
			return "", false
		}
		return input.Selected[0], true
	case models.TypeMatchPairs:
		if len(input.Pairs) == 0 {
			return "", false
		}
		for _, p := range input.Pairs {
			if len(p) != 2 {
				return "", false
			}
		}
		raw, err := json.Marshal(input.Pairs)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
	return "", false
}

// checkAnswer сравнивает нормализованный ответ с эталоном упражнения.
func checkAnswer(exercise *models.Exercise, input AnswerInput, normalized string) bool {
	switch exercise.Type {
	case models.TypeTranslate, models.TypeListenOrder:
		// порядок слов важен, регистр — нет
		return strings.EqualFold(normalized, exercise.Solution)
	case models.TypeFillBlank:
		return strings.EqualFold(normalized, exercise.Solution)
	case models.TypeMatchPairs:
		solution, err := exercise.PairSolution()
		if err != nil {
			return false
		}
		return matchPairSets(input.Pairs, solution)
	}
	return false
}

// matchPairSets сравнивает пары пользователя с эталоном как множества:
// порядок пар и порядок слов внутри пары не играют роли.
func matchPairSets(userPairs [][]string, solution map[string]string) bool {
	if len(userPairs) != len(solution) {
		return false
	}

	want := make(map[string]bool, len(solution))
	for k, v := range solution {
		want[pairKey(k, v)] = true
	}

	seen := make(map[string]bool, len(userPairs))
	for _, p := range userPairs {
		key := pairKey(p[0], p[1])
		if !want[key] || seen[key] {
			return false
		}
		seen[key] = true
	}

	return true
}

// pairKey строит канонический ключ неупорядоченной пары
func pairKey(a, b string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
