package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"lingua/backend/config"
	"lingua/backend/models"
	"lingua/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

// GetUserCourses возвращает открытые пользователю курсы с долей решённого
func (cc *CoursesController) GetUserCourses(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var courses []models.Course
	if err := cc.DB.Joins("JOIN course_unlocks ON course_unlocks.course_code = courses.code").
		Where("course_unlocks.user_id = ? AND courses.active = ?", userID, true).
		Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		var total, done int64
		if err := cc.DB.Model(&models.Exercise{}).
			Where("course_code = ? AND active = ?", course.Code, true).
			Count(&total).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
		// Решённые считаются только по активным упражнениям, иначе
		// снятое из выдачи упражнение задирает долю выше единицы
		if err := cc.DB.Model(&models.Completion{}).
			Joins("JOIN exercises ON exercises.id = completions.exercise_id").
			Where("completions.user_id = ? AND exercises.course_code = ? AND exercises.active = ?",
				userID, course.Code, true).
			Count(&done).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}

		ratio := 0.0
		if total > 0 {
			ratio = float64(done) / float64(total)
		}

		result = append(result, fiber.Map{
			"code":        course.Code,
			"title":       course.Title,
			"language":    course.Language,
			"levels":      course.Levels,
			"exercises":   total,
			"completed":   done,
			"progress":    ratio,
			"description": course.Description,
		})
	}

	return c.JSON(result)
}

// GetCourseDetails возвращает курс и его упражнения, сгруппированные
// по уровню и уроку. Эталонные ответы наружу не отдаются.
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	code := c.Params("code")

	var course models.Course
	if err := cc.DB.Where("code = ? AND active = ?", code, true).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if !cc.hasAccess(userID, code) {
		return utils.Forbidden(c, "Course is locked")
	}

	cc.logAccess(userID, code, "course_view", c.Get("User-Agent"))

	var exercises []models.Exercise
	cc.DB.Where("course_code = ? AND active = ?", code, true).
		Order("level ASC, lesson ASC, id ASC").
		Find(&exercises)

	// Группируем уроки внутри уровней
	levels := make(map[int]map[int][]fiber.Map)
	for _, ex := range exercises {
		if levels[ex.Level] == nil {
			levels[ex.Level] = make(map[int][]fiber.Map)
		}
		levels[ex.Level][ex.Lesson] = append(levels[ex.Level][ex.Lesson], exerciseView(&ex))
	}

	return c.JSON(fiber.Map{
		"course": fiber.Map{
			"code":        course.Code,
			"title":       course.Title,
			"language":    course.Language,
			"description": course.Description,
			"levels":      course.Levels,
		},
		"levels": levels,
	})
}

// GetLessonExercises возвращает упражнения одного урока
func (cc *CoursesController) GetLessonExercises(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	code := c.Params("code")
	lesson, err := strconv.Atoi(c.Params("lesson"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson number")
	}
	level, _ := strconv.Atoi(c.Query("level", "1"))

	if !cc.hasAccess(userID, code) {
		return utils.Forbidden(c, "Course is locked")
	}

	cc.logAccess(userID, code, "lesson_view", c.Get("User-Agent"))

	var exercises []models.Exercise
	if err := cc.DB.Where("course_code = ? AND level = ? AND lesson = ? AND active = ?",
		code, level, lesson, true).
		Order("id ASC").
		Find(&exercises).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(exercises))
	for _, ex := range exercises {
		result = append(result, exerciseView(&ex))
	}

	return c.JSON(result)
}

// UnlockCourse открывает курс по коду доступа
func (cc *CoursesController) UnlockCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		AccessCode string `json:"access_code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.AccessCode == "" {
		return utils.BadRequest(c, "Access code is required")
	}

	courseCode, err := redeemAccessCode(cc.DB, userID, input.AccessCode)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{
		"message":     "Course unlocked",
		"course_code": courseCode,
	})
}

// UpdateContentProgress фиксирует минуты, проведённые на материале урока
func (cc *CoursesController) UpdateContentProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	code := c.Params("code")
	if !cc.hasAccess(userID, code) {
		return utils.Forbidden(c, "Course is locked")
	}

	var input struct {
		Level           int     `json:"level"`
		Lesson          int     `json:"lesson"`
		Minutes         float64 `json:"minutes"`
		LessonCompleted bool    `json:"lesson_completed"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Minutes < 0 {
		return utils.BadRequest(c, "Minutes must not be negative")
	}

	var content models.ContentProgress
	err = cc.DB.Where("user_id = ? AND course_code = ? AND level = ? AND lesson = ?",
		userID, code, input.Level, input.Lesson).First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		content = models.ContentProgress{
			UserID:     userID,
			CourseCode: code,
			Level:      input.Level,
			Lesson:     input.Lesson,
		}
	} else if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	content.MinutesSpent += input.Minutes
	if err := cc.DB.Save(&content).Error; err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	var progress models.CourseProgress
	err = cc.DB.Where("user_id = ? AND course_code = ?", userID, code).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.CourseProgress{
			UserID:     userID,
			CourseCode: code,
		}
	} else if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	progress.MinutesSpent += input.Minutes
	if input.LessonCompleted {
		progress.LessonsCompleted++
	}
	progress.LastAccessed = time.Now()
	if err := cc.DB.Save(&progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	return c.JSON(fiber.Map{
		"message": "Progress updated",
		"progress": fiber.Map{
			"lessons_completed": progress.LessonsCompleted,
			"minutes_spent":     progress.MinutesSpent,
		},
	})
}

// CreateCourse создает курс (только для админов)
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input struct {
		Code        string `json:"code"`
		Title       string `json:"title"`
		Language    string `json:"language"`
		Description string `json:"description"`
		Levels      int    `json:"levels"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Code == "" || input.Title == "" {
		return utils.BadRequest(c, "Code and title are required")
	}
	if input.Levels <= 0 {
		input.Levels = 1
	}

	course := models.Course{
		Code:        input.Code,
		Title:       input.Title,
		Language:    input.Language,
		Description: input.Description,
		Levels:      input.Levels,
		Active:      true,
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.BadRequest(c, "Course code already exists")
		}
		return utils.InternalServerError(c, "Could not create course")
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

// CreateAccessCodes генерирует коды доступа для курса (только для админов)
func (cc *CoursesController) CreateAccessCodes(c *fiber.Ctx) error {
	code := c.Params("code")

	var course models.Course
	if err := cc.DB.Where("code = ?", code).First(&course).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	count, _ := strconv.Atoi(c.Query("count", "1"))
	if count < 1 || count > 500 {
		return utils.BadRequest(c, "Count must be between 1 and 500")
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		accessCode := models.AccessCode{
			Code:       uuid.NewString(),
			CourseCode: code,
		}
		if err := cc.DB.Create(&accessCode).Error; err != nil {
			return utils.InternalServerError(c, "Could not create access codes")
		}
		codes = append(codes, accessCode.Code)
	}

	return c.JSON(fiber.Map{
		"course_code":  code,
		"access_codes": codes,
	})
}

// CreateExercise добавляет упражнение в курс (только для админов).
// Тег типа нормализуется, legacy-написания принимаются.
func (cc *CoursesController) CreateExercise(c *fiber.Ctx) error {
	code := c.Params("code")

	var course models.Course
	if err := cc.DB.Where("code = ?", code).First(&course).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	var input struct {
		Level    int             `json:"level"`
		Lesson   int             `json:"lesson"`
		Type     string          `json:"type"`
		Prompt   string          `json:"prompt"`
		Options  json.RawMessage `json:"options"`
		Solution string          `json:"solution"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	exerciseType, err := models.NormalizeExerciseType(input.Type)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if input.Level <= 0 || input.Lesson <= 0 {
		return utils.BadRequest(c, "Level and lesson must be positive")
	}
	if input.Solution == "" {
		return utils.BadRequest(c, "Solution is required")
	}
	if exerciseType == models.TypeMatchPairs {
		var pairs map[string]string
		if err := json.Unmarshal([]byte(input.Solution), &pairs); err != nil || len(pairs) == 0 {
			return utils.BadRequest(c, "match_pairs solution must be a JSON object of word pairs")
		}
	}

	exercise := models.Exercise{
		CourseCode: code,
		Level:      input.Level,
		Lesson:     input.Lesson,
		Type:       exerciseType,
		Prompt:     input.Prompt,
		Options:    string(input.Options),
		Solution:   input.Solution,
		Active:     true,
	}

	if err := cc.DB.Create(&exercise).Error; err != nil {
		return utils.InternalServerError(c, "Could not create exercise")
	}

	return c.JSON(fiber.Map{
		"message":  "Exercise created",
		"exercise": exerciseView(&exercise),
	})
}

// DeactivateExercise убирает упражнение из выдачи (только для админов)
func (cc *CoursesController) DeactivateExercise(c *fiber.Ctx) error {
	exerciseID, err := strconv.Atoi(c.Params("exerciseId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid exercise ID")
	}

	var exercise models.Exercise
	if err := cc.DB.First(&exercise, exerciseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Exercise not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	exercise.Active = false
	if err := cc.DB.Save(&exercise).Error; err != nil {
		return utils.InternalServerError(c, "Could not update exercise")
	}

	return c.JSON(fiber.Map{
		"message": "Exercise deactivated",
	})
}

func (cc *CoursesController) hasAccess(userID uint, courseCode string) bool {
	var unlock models.CourseUnlock
	return cc.DB.Where("user_id = ? AND course_code = ?", userID, courseCode).
		First(&unlock).Error == nil
}

func (cc *CoursesController) logAccess(userID uint, courseCode, action, clientMeta string) {
	cc.DB.Create(&models.AccessLog{
		UserID:     userID,
		CourseCode: courseCode,
		Action:     action,
		ClientMeta: clientMeta,
		AccessedAt: time.Now(),
	})
}

// exerciseView — представление упражнения без эталонного ответа
func exerciseView(ex *models.Exercise) fiber.Map {
	var options interface{}
	if ex.Options != "" {
		if err := json.Unmarshal([]byte(ex.Options), &options); err != nil {
			options = ex.Options
		}
	}

	return fiber.Map{
		"id":      ex.ID,
		"level":   ex.Level,
		"lesson":  ex.Lesson,
		"type":    ex.Type,
		"prompt":  ex.Prompt,
		"options": options,
	}
}
