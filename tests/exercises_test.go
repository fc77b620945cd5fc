package tests

import (
	"fmt"
	"net/http"
	"testing"

	"lingua/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func attemptURL(exerciseID uint) string {
	return fmt.Sprintf("/api/exercises/%d/attempts", exerciseID)
}

func TestFillBlankScenario(t *testing.T) {
	token := userToken(t)

	// "hello" против эталона "HELLO" — регистр не важен
	status, result := doRequest(t, http.MethodPost, attemptURL(fillExercise.ID), token,
		map[string]interface{}{"selected": []string{"hello"}})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["correct"])
	assert.Equal(t, float64(1), result["attempt_number"])
	assert.Equal(t, float64(2), result["attempts_remaining"])
	assert.Equal(t, true, result["completed"])
	assert.Equal(t, true, result["can_advance"])
	assert.Equal(t, false, result["reveal_solution"])

	var completions int64
	db.Model(&models.Completion{}).
		Where("user_id = ? AND exercise_id = ?", testUser.ID, fillExercise.ID).
		Count(&completions)
	assert.Equal(t, int64(1), completions)

	// Повторная отправка после решения отклоняется
	status, _ = doRequest(t, http.MethodPost, attemptURL(fillExercise.ID), token,
		map[string]interface{}{"selected": []string{"ciao"}})
	assert.Equal(t, fiber.StatusConflict, status)

	var attempts int64
	db.Model(&models.Attempt{}).
		Where("user_id = ? AND exercise_id = ?", testUser.ID, fillExercise.ID).
		Count(&attempts)
	assert.Equal(t, int64(1), attempts)
}

func TestTranslateRevealAfterThreeWrong(t *testing.T) {
	token := userToken(t)

	wrong := [][]string{{"hi"}, {"hey"}, {"yo"}}
	for i, tokens := range wrong {
		status, result := doRequest(t, http.MethodPost, attemptURL(translateExercise.ID), token,
			map[string]interface{}{"tokens": tokens})

		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, false, result["correct"])
		assert.Equal(t, float64(i+1), result["attempt_number"])
		assert.Equal(t, float64(2-i), result["attempts_remaining"])

		if i < 2 {
			assert.Equal(t, false, result["reveal_solution"])
			assert.Equal(t, false, result["can_advance"])
		} else {
			// Третья неудачная попытка раскрывает эталон
			assert.Equal(t, true, result["reveal_solution"])
			assert.Equal(t, "io sono", result["solution"])
			assert.Equal(t, true, result["can_advance"])
		}
	}

	// Исчерпание попыток не засчитывает упражнение как решённое
	var completions int64
	db.Model(&models.Completion{}).
		Where("user_id = ? AND exercise_id = ?", testUser.ID, translateExercise.ID).
		Count(&completions)
	assert.Equal(t, int64(0), completions)

	status, _ := doRequest(t, http.MethodPost, attemptURL(translateExercise.ID), token,
		map[string]interface{}{"tokens": []string{"io", "sono"}})
	assert.Equal(t, fiber.StatusConflict, status)

	var attempts int64
	db.Model(&models.Attempt{}).
		Where("user_id = ? AND exercise_id = ?", testUser.ID, translateExercise.ID).
		Count(&attempts)
	assert.Equal(t, int64(3), attempts)
}

func TestAttemptStateIdempotent(t *testing.T) {
	token := userToken(t)

	// Своё упражнение с исчерпанными попытками, чтобы не зависеть
	// от порядка других тестов
	exercise := models.Exercise{
		CourseCode: "ITA1",
		Level:      1,
		Lesson:     5,
		Type:       models.TypeTranslate,
		Prompt:     "Translate: we are",
		Options:    `["noi","siamo","voi"]`,
		Solution:   "noi siamo",
		Active:     true,
	}
	db.Create(&exercise)

	for _, tokens := range [][]string{{"voi"}, {"noi"}, {"siamo"}} {
		status, _ := doRequest(t, http.MethodPost, attemptURL(exercise.ID), token,
			map[string]interface{}{"tokens": tokens})
		assert.Equal(t, fiber.StatusOK, status)
	}

	status, first := doRequest(t, http.MethodGet, attemptURL(exercise.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, float64(3), first["attempts_used"])
	assert.Equal(t, float64(0), first["attempts_remaining"])
	assert.Equal(t, false, first["completed"])
	assert.Equal(t, true, first["show_solution"])
	assert.Equal(t, "noi siamo", first["solution"])
	assert.Equal(t, true, first["can_advance"])

	status, second := doRequest(t, http.MethodGet, attemptURL(exercise.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, first, second)
}

func TestLockedCourseForbidden(t *testing.T) {
	token := userToken(t)

	status, _ := doRequest(t, http.MethodPost, attemptURL(lockedExercise.ID), token,
		map[string]interface{}{"selected": []string{"si"}})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doRequest(t, http.MethodGet, attemptURL(lockedExercise.ID), token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestUnknownExerciseNotFound(t *testing.T) {
	token := userToken(t)

	status, _ := doRequest(t, http.MethodPost, "/api/exercises/99999/attempts", token,
		map[string]interface{}{"selected": []string{"si"}})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestMalformedAnswerConsumesAttempt(t *testing.T) {
	token := userToken(t)

	// Отдельное упражнение, чтобы не мешать другим сценариям
	exercise := models.Exercise{
		CourseCode: "ITA1",
		Level:      1,
		Lesson:     2,
		Type:       models.TypeFillBlank,
		Prompt:     "Scegli",
		Solution:   "no",
		Active:     true,
	}
	db.Create(&exercise)

	// fill_blank с двумя вариантами — неправильная форма ответа
	status, result := doRequest(t, http.MethodPost, attemptURL(exercise.ID), token,
		map[string]interface{}{"selected": []string{"si", "no"}})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, result["correct"])
	assert.Equal(t, float64(1), result["attempt_number"])

	var attempts int64
	db.Model(&models.Attempt{}).
		Where("user_id = ? AND exercise_id = ?", testUser.ID, exercise.ID).
		Count(&attempts)
	assert.Equal(t, int64(1), attempts)
}

func TestAdminCreateExerciseNormalizesLegacyTag(t *testing.T) {
	adminToken := loginAs(t, "admin")

	status, result := doRequest(t, http.MethodPost, "/api/admin/courses/ITA1/exercises", adminToken,
		map[string]interface{}{
			"level":    2,
			"lesson":   1,
			"type":     "traduci",
			"prompt":   "Traduci: buongiorno",
			"options":  []string{"good", "morning"},
			"solution": "good morning",
		})

	assert.Equal(t, fiber.StatusOK, status)
	exercise := result["exercise"].(map[string]interface{})
	assert.Equal(t, "translate", exercise["type"])

	// Неизвестный тег отклоняется
	status, _ = doRequest(t, http.MethodPost, "/api/admin/courses/ITA1/exercises", adminToken,
		map[string]interface{}{
			"level":    2,
			"lesson":   1,
			"type":     "cruciverba",
			"solution": "x",
		})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdminEndpointsRejectRegularUser(t *testing.T) {
	status, _ := doRequest(t, http.MethodPost, "/api/admin/courses", userToken(t),
		map[string]interface{}{"code": "ITA2", "title": "Italiano 2"})
	assert.Equal(t, fiber.StatusForbidden, status)
}
