package controllers

import (
	"errors"
	"strconv"
	"time"

	"lingua/backend/config"
	"lingua/backend/models"
	"lingua/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ExercisesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewExercisesController(db *gorm.DB, cfg *config.Config) *ExercisesController {
	return &ExercisesController{DB: db, Cfg: cfg}
}

// RecordAttempt godoc
// @Summary Submit an exercise answer
// @Description Records one scored attempt, up to three per exercise
// @Tags exercises
// @Accept json
// @Produce json
// @Param id path int true "Exercise ID"
// @Param input body AnswerInput true "Answer payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /exercises/{id}/attempts [post]
func (ec *ExercisesController) RecordAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	exerciseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid exercise ID")
	}

	var input AnswerInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var exercise models.Exercise
	if err := ec.DB.Where("active = ?", true).First(&exercise, exerciseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Exercise not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	// Проверка, что курс упражнения открыт пользователю
	var unlock models.CourseUnlock
	if err := ec.DB.Where("user_id = ? AND course_code = ?", userID, exercise.CourseCode).
		First(&unlock).Error; err != nil {
		return utils.Forbidden(c, "Course is locked")
	}

	attempts, err := ec.loadAttempts(userID, uint(exerciseID))
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	for _, a := range attempts {
		if a.Correct {
			return utils.Conflict(c, "Exercise already completed",
				ec.attemptState(userID, &exercise, attempts))
		}
	}
	if len(attempts) >= models.MaxAttempts {
		return utils.Conflict(c, "No attempts left",
			ec.attemptState(userID, &exercise, attempts))
	}

	attemptNumber := len(attempts) + 1

	// Ответ неправильной формы тратит попытку и считается неверным
	normalized, valid := normalizeAnswer(exercise.Type, input)
	correct := valid && checkAnswer(&exercise, input, normalized)

	attempt := models.Attempt{
		UserID:        userID,
		ExerciseID:    uint(exerciseID),
		AttemptNumber: attemptNumber,
		Answer:        normalized,
		Correct:       correct,
		SubmittedAt:   time.Now(),
	}

	if err := ec.DB.Create(&attempt).Error; err != nil {
		// Уникальный индекс (user, exercise, attempt_number) отбрасывает
		// проигравшего при двух одновременных отправках
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Concurrent submission, retry")
		}
		return utils.InternalServerError(c, "Could not save attempt")
	}

	completed := false
	if correct {
		completion := models.Completion{
			UserID:      userID,
			ExerciseID:  uint(exerciseID),
			CompletedAt: time.Now(),
		}
		if err := ec.DB.Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
			FirstOrCreate(&completion).Error; err != nil {
			return utils.InternalServerError(c, "Could not save completion")
		}
		completed = true
	}

	exhausted := !correct && attemptNumber == models.MaxAttempts
	result := fiber.Map{
		"accepted":           true,
		"correct":            correct,
		"attempt_number":     attemptNumber,
		"attempts_remaining": models.MaxAttempts - attemptNumber,
		"reveal_solution":    exhausted,
		"completed":          completed,
		// canAdvance открывает навигацию дальше, но не означает "решено":
		// Completion пишется только за верный ответ
		"can_advance": correct || exhausted,
	}
	if exhausted {
		result["solution"] = exercise.Solution
	}

	return c.JSON(result)
}

// GetAttemptState godoc
// @Summary Get attempt state for an exercise
// @Description Returns past attempts, attempts remaining and completion state
// @Tags exercises
// @Accept json
// @Produce json
// @Param id path int true "Exercise ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /exercises/{id}/attempts [get]
func (ec *ExercisesController) GetAttemptState(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	exerciseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid exercise ID")
	}

	var exercise models.Exercise
	if err := ec.DB.Where("active = ?", true).First(&exercise, exerciseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Exercise not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var unlock models.CourseUnlock
	if err := ec.DB.Where("user_id = ? AND course_code = ?", userID, exercise.CourseCode).
		First(&unlock).Error; err != nil {
		return utils.Forbidden(c, "Course is locked")
	}

	attempts, err := ec.loadAttempts(userID, uint(exerciseID))
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(ec.attemptState(userID, &exercise, attempts))
}

func (ec *ExercisesController) loadAttempts(userID, exerciseID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := ec.DB.Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

// attemptState собирает текущее состояние пары (user, exercise)
func (ec *ExercisesController) attemptState(userID uint, exercise *models.Exercise, attempts []models.Attempt) fiber.Map {
	completed := false
	for _, a := range attempts {
		if a.Correct {
			completed = true
			break
		}
	}
	if !completed {
		var completion models.Completion
		if err := ec.DB.Where("user_id = ? AND exercise_id = ?", userID, exercise.ID).
			First(&completion).Error; err == nil {
			completed = true
		}
	}

	used := len(attempts)
	showSolution := used >= models.MaxAttempts && !completed

	history := make([]fiber.Map, 0, len(attempts))
	for _, a := range attempts {
		history = append(history, fiber.Map{
			"attempt_number": a.AttemptNumber,
			"answer":         a.Answer,
			"correct":        a.Correct,
			"submitted_at":   a.SubmittedAt,
		})
	}

	state := fiber.Map{
		"exercise_id":        exercise.ID,
		"attempts":           history,
		"attempts_used":      used,
		"attempts_remaining": models.MaxAttempts - used,
		"completed":          completed,
		"show_solution":      showSolution,
		"can_advance":        completed || used >= models.MaxAttempts,
	}
	if showSolution {
		state["solution"] = exercise.Solution
	}

	return state
}
