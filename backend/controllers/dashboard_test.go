package controllers

import (
	"strings"
	"testing"
	"time"

	"lingua/backend/config"
	"lingua/backend/models"
	"lingua/backend/utils"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("could not open test database: %v", err)
	}
	if err := utils.Migrate(db); err != nil {
		t.Fatalf("could not migrate test database: %v", err)
	}
	return db
}

func seedCourseWithExercises(t *testing.T, db *gorm.DB, userID uint, code string, total, completed int) {
	assert.NoError(t, db.Create(&models.Course{Code: code, Title: code, Language: "italian", Active: true}).Error)
	assert.NoError(t, db.Create(&models.CourseUnlock{UserID: userID, CourseCode: code, UnlockedAt: time.Now()}).Error)

	for i := 0; i < total; i++ {
		exercise := models.Exercise{
			CourseCode: code,
			Level:      1,
			Lesson:     1,
			Type:       models.TypeFillBlank,
			Prompt:     "prompt",
			Solution:   "si",
			Active:     true,
		}
		assert.NoError(t, db.Create(&exercise).Error)

		if i < completed {
			assert.NoError(t, db.Create(&models.Completion{
				UserID:      userID,
				ExerciseID:  exercise.ID,
				CompletedAt: time.Now(),
			}).Error)
		}
	}
}

// Дашборд обязан собраться из одних только таблиц попыток и курсов,
// когда все необязательные таблицы отсутствуют
func TestDashboardDegradesWithoutOptionalTables(t *testing.T) {
	db := openTestDB(t)
	seedCourseWithExercises(t, db, 1, "ITA1", 2, 1)

	assert.NoError(t, db.Migrator().DropTable(
		&models.DailyActivity{},
		&models.AccessLog{},
		&models.CourseProgress{},
		&models.ContentProgress{},
	))

	dc := NewDashboardController(db, &config.Config{})
	summary := dc.buildSummary(1)

	assert.Equal(t, 1, summary.TotalCourses)
	assert.Equal(t, 2, summary.TotalExercises)
	assert.Equal(t, 1, summary.CompletedExercises)
	assert.Equal(t, 1, summary.InProgressCourses)
	assert.Equal(t, 0, summary.CompletedCourses)
	assert.Equal(t, float64(0), summary.TotalHours)
	assert.Equal(t, 0, summary.StudySessions)
	assert.Equal(t, 0, summary.ContentViewed)
	assert.Equal(t, 0, summary.CurrentStreak)
	assert.Equal(t, 0, summary.LongestStreak)
	assert.Len(t, summary.WeeklyProgress, 7)
	assert.NotEmpty(t, summary.LastActivityDate)
}

func TestDashboardManualReconstruction(t *testing.T) {
	db := openTestDB(t)

	// курс с долей решённого выше порога 0.80 и курс в процессе
	seedCourseWithExercises(t, db, 1, "ITA1", 5, 5)
	seedCourseWithExercises(t, db, 1, "ITA2", 4, 1)

	today := time.Now().Format(dateLayout)
	yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	assert.NoError(t, db.Create(&models.DailyActivity{UserID: 1, Date: today, Minutes: 30}).Error)
	assert.NoError(t, db.Create(&models.DailyActivity{UserID: 1, Date: yesterday, Minutes: 30}).Error)

	assert.NoError(t, db.Create(&models.AccessLog{
		UserID:     1,
		CourseCode: "ITA1",
		Action:     "course_view",
		AccessedAt: time.Now(),
	}).Error)

	dc := NewDashboardController(db, &config.Config{})
	summary := dc.buildSummary(1)

	assert.Equal(t, 2, summary.TotalCourses)
	assert.Equal(t, 9, summary.TotalExercises)
	assert.Equal(t, 6, summary.CompletedExercises)
	assert.Equal(t, 1, summary.CompletedCourses)
	assert.Equal(t, 1, summary.InProgressCourses)
	assert.InDelta(t, 1.0, summary.TotalHours, 0.001)
	assert.Equal(t, 2, summary.ActiveDays)
	assert.Equal(t, 2, summary.CurrentStreak)
	assert.Equal(t, 2, summary.LongestStreak)
	assert.Equal(t, 1, summary.StudySessions)
	assert.Equal(t, today, summary.LastActivityDate)

	assert.Len(t, summary.WeeklyProgress, 7)
	assert.InDelta(t, 30, summary.WeeklyProgress[6].Minutes, 0.001)
	assert.InDelta(t, 30, summary.WeeklyProgress[5].Minutes, 0.001)
}

// Чужая активность не должна попадать в сводку
func TestDashboardScopedToUser(t *testing.T) {
	db := openTestDB(t)
	seedCourseWithExercises(t, db, 1, "ITA1", 2, 2)
	assert.NoError(t, db.Create(&models.CourseUnlock{UserID: 2, CourseCode: "ITA1", UnlockedAt: time.Now()}).Error)

	dc := NewDashboardController(db, &config.Config{})
	summary := dc.buildSummary(2)

	assert.Equal(t, 1, summary.TotalCourses)
	assert.Equal(t, 2, summary.TotalExercises)
	assert.Equal(t, 0, summary.CompletedExercises)
	assert.Equal(t, 0, summary.CompletedCourses)
	assert.Equal(t, 0, summary.InProgressCourses)
}

// Одни и те же минуты зеркалятся в course_progresses и content_progresses,
// в часы они должны попасть один раз
func TestMinutesNotDoubleCounted(t *testing.T) {
	db := openTestDB(t)
	seedCourseWithExercises(t, db, 1, "ITA1", 1, 0)

	assert.NoError(t, db.Create(&models.ContentProgress{
		UserID:       1,
		CourseCode:   "ITA1",
		Level:        1,
		Lesson:       1,
		MinutesSpent: 30,
	}).Error)
	assert.NoError(t, db.Create(&models.CourseProgress{
		UserID:       1,
		CourseCode:   "ITA1",
		MinutesSpent: 30,
		LastAccessed: time.Now(),
	}).Error)

	dc := NewDashboardController(db, &config.Config{})
	summary := dc.buildSummary(1)

	assert.InDelta(t, 0.5, summary.TotalHours, 0.001)
}

// Попытки и прогресс по курсам тоже двигают дату последней активности
func TestLastActivityFromAttempts(t *testing.T) {
	db := openTestDB(t)

	yesterday := time.Now().AddDate(0, 0, -1)
	assert.NoError(t, db.Create(&models.Attempt{
		UserID:        1,
		ExerciseID:    1,
		AttemptNumber: 1,
		Answer:        "si",
		SubmittedAt:   yesterday,
	}).Error)
	assert.NoError(t, db.Create(&models.CourseProgress{
		UserID:       1,
		CourseCode:   "ITA1",
		LastAccessed: yesterday.AddDate(0, 0, -2),
	}).Error)

	dc := NewDashboardController(db, &config.Config{})
	summary := dc.buildSummary(1)

	assert.Equal(t, yesterday.Format(dateLayout), summary.LastActivityDate)
}

func TestSummaryFunctionsUnavailable(t *testing.T) {
	db := openTestDB(t)

	dc := NewDashboardController(db, &config.Config{})
	_, ok := dc.fetchOptimizedSummary(1)
	assert.False(t, ok)
	_, ok = dc.fetchBasicSummary(1)
	assert.False(t, ok)
}
