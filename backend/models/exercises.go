package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Канонические типы упражнений. В старой базе теги хранились как
// свободные строки на итальянском, отсюда таблица алиасов ниже.
const (
	TypeTranslate   = "translate"    // собрать перевод из банка слов
	TypeFillBlank   = "fill_blank"   // выбрать одно слово для пропуска
	TypeListenOrder = "listen_order" // прослушать и восстановить порядок
	TypeMatchPairs  = "match_pairs"  // соединить пары слов
)

var exerciseTypeAliases = map[string]string{
	TypeTranslate:   TypeTranslate,
	TypeFillBlank:   TypeFillBlank,
	TypeListenOrder: TypeListenOrder,
	TypeMatchPairs:  TypeMatchPairs,

	// legacy-теги из старой базы
	"traduci":             TypeTranslate,
	"traduzione":          TypeTranslate,
	"completa la frase":   TypeFillBlank,
	"completa":            TypeFillBlank,
	"ascolta e ordina":    TypeListenOrder,
	"ascolta":             TypeListenOrder,
	"seleziona le coppie": TypeMatchPairs,
	"abbina le coppie":    TypeMatchPairs,
	"fill-blank":          TypeFillBlank,
	"listen-order":        TypeListenOrder,
	"match-pairs":         TypeMatchPairs,
}

// NormalizeExerciseType сводит тег упражнения к каноническому значению.
func NormalizeExerciseType(tag string) (string, error) {
	if canonical, ok := exerciseTypeAliases[tag]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unknown exercise type %q", tag)
}

type Exercise struct {
	gorm.Model
	CourseCode string `gorm:"index;not null"`
	Level      int    `gorm:"not null"`
	Lesson     int    `gorm:"not null"`
	Type       string `gorm:"not null"` // каноническое значение, см. выше
	Prompt     string
	Options    string // JSON: банк слов, варианты выбора или перемешанные пары
	Solution   string // строка, для match_pairs — JSON-объект слово->слово
	Active     bool   `gorm:"default:true"`
}

// PairSolution разбирает эталон match_pairs в набор пар.
func (e *Exercise) PairSolution() (map[string]string, error) {
	var pairs map[string]string
	if err := json.Unmarshal([]byte(e.Solution), &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// Attempt — одна попытка ответа. Только добавляется, никогда не меняется.
// Уникальный составной индекс по (user, exercise, attempt_number) —
// защита от двух конкурентных попыток занять один и тот же номер.
type Attempt struct {
	gorm.Model
	UserID        uint   `gorm:"index:idx_attempt_user_ex_num,unique"`
	ExerciseID    uint   `gorm:"index:idx_attempt_user_ex_num,unique"`
	AttemptNumber int    `gorm:"index:idx_attempt_user_ex_num,unique"`
	Answer        string // нормализованный ответ пользователя
	Correct       bool
	SubmittedAt   time.Time
}

// Completion — факт, что пользователь правильно решил упражнение.
// Ровно одна строка на пару (user, exercise).
type Completion struct {
	gorm.Model
	UserID      uint `gorm:"index:idx_completion_user_ex,unique"`
	ExerciseID  uint `gorm:"index:idx_completion_user_ex,unique"`
	CompletedAt time.Time
}

// MaxAttempts — сколько попыток даётся на упражнение.
const MaxAttempts = 3
