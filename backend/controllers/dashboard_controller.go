package controllers

import (
	"encoding/json"
	"time"

	"lingua/backend/config"
	"lingua/backend/models"
	"lingua/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewDashboardController(db *gorm.DB, cfg *config.Config) *DashboardController {
	return &DashboardController{DB: db, Cfg: cfg}
}

// summaryProvider — один источник сводки. ok == false означает, что
// источник недоступен и надо пробовать следующий.
type summaryProvider struct {
	name  string
	fetch func(userID uint) (*models.DashboardSummary, bool)
}

// GetDashboardSummary godoc
// @Summary Get dashboard summary
// @Description Returns aggregated course/exercise progress and study activity
// @Tags dashboard
// @Accept json
// @Produce json
// @Success 200 {object} models.DashboardSummary
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (dc *DashboardController) GetDashboardSummary(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, dc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, dc.buildSummary(userID))
}

// buildSummary перебирает источники по порядку: оптимизированная функция
// в базе, базовая функция, ручная сборка. Никогда не возвращает ошибку —
// дашборд обязан отрисоваться даже при полном отказе, пусть и нулевой.
func (dc *DashboardController) buildSummary(userID uint) (summary *models.DashboardSummary) {
	defer func() {
		if r := recover(); r != nil {
			summary = emptySummary(time.Now())
		}
	}()

	providers := []summaryProvider{
		{"optimized", dc.fetchOptimizedSummary},
		{"basic", dc.fetchBasicSummary},
		{"manual", dc.rebuildSummary},
	}

	for _, p := range providers {
		if s, ok := p.fetch(userID); ok {
			return s
		}
	}

	return emptySummary(time.Now())
}

func (dc *DashboardController) fetchOptimizedSummary(userID uint) (*models.DashboardSummary, bool) {
	return dc.fetchSummaryFunc("dashboard_summary_optimized", userID)
}

func (dc *DashboardController) fetchBasicSummary(userID uint) (*models.DashboardSummary, bool) {
	return dc.fetchSummaryFunc("dashboard_summary", userID)
}

// fetchSummaryFunc дергает SQL-функцию, возвращающую сводку одним JSON.
// Функции есть не в каждой инсталляции, любая ошибка значит "недоступно".
func (dc *DashboardController) fetchSummaryFunc(fn string, userID uint) (*models.DashboardSummary, bool) {
	var payload string
	if err := dc.DB.Raw("SELECT "+fn+"(?)", userID).Scan(&payload).Error; err != nil {
		return nil, false
	}
	if payload == "" {
		return nil, false
	}

	var summary models.DashboardSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, false
	}

	return &summary, true
}

// rebuildSummary собирает сводку вручную из сырых таблиц. Каждый
// необязательный источник, который не удалось прочитать, просто даёт
// пустой вклад — частично мигрированная база всё равно отдаёт дашборд.
func (dc *DashboardController) rebuildSummary(userID uint) (*models.DashboardSummary, bool) {
	now := time.Now()
	s := emptySummary(now)

	// Открытые пользователю активные курсы
	var courseCodes []string
	dc.DB.Model(&models.CourseUnlock{}).
		Joins("JOIN courses ON courses.code = course_unlocks.course_code AND courses.active = ?", true).
		Where("course_unlocks.user_id = ?", userID).
		Pluck("course_unlocks.course_code", &courseCodes)
	s.TotalCourses = len(courseCodes)

	type courseCount struct {
		CourseCode string
		N          int
	}

	// Всего упражнений по курсам
	totalByCourse := map[string]int{}
	if len(courseCodes) > 0 {
		var rows []courseCount
		if err := dc.DB.Model(&models.Exercise{}).
			Select("course_code, COUNT(*) AS n").
			Where("active = ? AND course_code IN ?", true, courseCodes).
			Group("course_code").
			Scan(&rows).Error; err == nil {
			for _, r := range rows {
				totalByCourse[r.CourseCode] = r.N
				s.TotalExercises += r.N
			}
		}
	}

	// Решённые упражнения по курсам; join на exercises может не сработать
	// на старой схеме, тогда статистика по упражнениям остаётся пустой
	doneByCourse := map[string]int{}
	var doneRows []courseCount
	if err := dc.DB.Model(&models.Completion{}).
		Select("exercises.course_code AS course_code, COUNT(*) AS n").
		Joins("JOIN exercises ON exercises.id = completions.exercise_id AND exercises.active = ?", true).
		Where("completions.user_id = ?", userID).
		Group("exercises.course_code").
		Scan(&doneRows).Error; err == nil {
		for _, r := range doneRows {
			doneByCourse[r.CourseCode] = r.N
			s.CompletedExercises += r.N
		}
	}

	// Курс завершён при доле решённого выше 0.80, иначе "в процессе"
	for code, total := range totalByCourse {
		if total == 0 {
			continue
		}
		ratio := float64(doneByCourse[code]) / float64(total)
		if ratio > 0.80 {
			s.CompletedCourses++
		} else if ratio > 0 {
			s.InProgressCourses++
		}
	}

	// Минуты занятий: сначала свёртка по дням за последние 30 дней,
	// без неё — суммы времени из записей прогресса
	totalMinutes := 0.0
	var minutesByDay map[string]float64
	activityDays := map[string]bool{}

	var daily []models.DailyActivity
	since := now.AddDate(0, 0, -30).Format(dateLayout)
	if err := dc.DB.Where("user_id = ? AND date >= ?", userID, since).
		Order("date ASC").
		Find(&daily).Error; err == nil && len(daily) > 0 {
		minutesByDay = make(map[string]float64, len(daily))
		for _, d := range daily {
			minutesByDay[d.Date] += d.Minutes
			totalMinutes += d.Minutes
			activityDays[d.Date] = true
		}
		s.ActiveDays = len(daily)
	} else {
		// Минуты зеркалятся и в course_progresses, поэтому считаем
		// только один источник; агрегат по курсам — запасной
		var contentMinutes float64
		if err := dc.DB.Model(&models.ContentProgress{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(minutes_spent), 0)").
			Scan(&contentMinutes).Error; err == nil {
			totalMinutes += contentMinutes
		} else {
			var courseMinutes float64
			if err := dc.DB.Model(&models.CourseProgress{}).
				Where("user_id = ?", userID).
				Select("COALESCE(SUM(minutes_spent), 0)").
				Scan(&courseMinutes).Error; err == nil {
				totalMinutes += courseMinutes
			}
		}
	}
	s.TotalHours = totalMinutes / 60

	// Логи доступа: серия и последняя активность
	var accessLogs []models.AccessLog
	dc.DB.Where("user_id = ?", userID).
		Order("accessed_at DESC").
		Limit(100).
		Find(&accessLogs)
	for _, a := range accessLogs {
		activityDays[a.AccessedAt.Format(dateLayout)] = true
	}
	s.StudySessions = len(accessLogs)

	s.CurrentStreak = currentStreak(activityDays, now)
	s.LongestStreak = longestStreak(activityDays)

	s.LastActivityDate = dc.lastActivityDate(userID, accessLogs, daily, now)
	s.WeeklyProgress = weeklySeries(minutesByDay, now, totalMinutes)

	var contentViewed int64
	if err := dc.DB.Model(&models.ContentProgress{}).
		Where("user_id = ?", userID).
		Count(&contentViewed).Error; err == nil {
		s.ContentViewed = int(contentViewed)
	}

	return s, true
}

// lastActivityDate — максимум по всем доступным источникам активности,
// по умолчанию сегодняшний день
func (dc *DashboardController) lastActivityDate(userID uint, accessLogs []models.AccessLog, daily []models.DailyActivity, now time.Time) string {
	var last time.Time

	for _, a := range accessLogs {
		if a.AccessedAt.After(last) {
			last = a.AccessedAt
		}
	}
	for _, d := range daily {
		if parsed, err := time.Parse(dateLayout, d.Date); err == nil && parsed.After(last) {
			last = parsed
		}
	}

	// Агрегат MAX() теряет тип колонки на sqlite и приходит строкой,
	// поэтому читаем последнюю строку вместо агрегата
	var lastAttempt models.Attempt
	if err := dc.DB.Where("user_id = ?", userID).
		Order("submitted_at DESC").
		First(&lastAttempt).Error; err == nil && lastAttempt.SubmittedAt.After(last) {
		last = lastAttempt.SubmittedAt
	}

	var latest models.CourseProgress
	if err := dc.DB.Where("user_id = ?", userID).
		Order("last_accessed DESC").
		First(&latest).Error; err == nil && latest.LastAccessed.After(last) {
		last = latest.LastAccessed
	}

	if last.IsZero() {
		return now.Format(dateLayout)
	}
	return last.Format(dateLayout)
}

// emptySummary — нулевая сводка, которую дашборд может отрисовать всегда
func emptySummary(now time.Time) *models.DashboardSummary {
	return &models.DashboardSummary{
		LastActivityDate: now.Format(dateLayout),
		WeeklyProgress:   weeklySeries(nil, now, 0),
	}
}
