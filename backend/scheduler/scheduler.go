package scheduler

import (
	"log"
	"time"

	"lingua/backend/models"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// Scheduler гоняет ночную свёртку активности в daily_activities.
// Дашборд читает её вместо сырых логов, когда она есть.
type Scheduler struct {
	scheduler *gocron.Scheduler
	db        *gorm.DB
	logger    *log.Logger
}

func New(db *gorm.DB, logger *log.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		db:        db,
		logger:    logger,
	}
}

// Start запускает задачи планировщика в фоне
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Day().At("02:00").Do(func() {
		s.RollupDay(time.Now().UTC().AddDate(0, 0, -1))
	})
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RollupDay сводит активность за один календарный день в daily_activities.
// Колонка minutes_spent в прогрессе накопительная, поэтому в день уходит
// только прирост с прошлой свёртки; день с одними заходами или попытками
// получает символические 5 минут, чтобы серия занятий не рвалась.
func (s *Scheduler) RollupDay(day time.Time) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	date := dayStart.Format("2006-01-02")

	minutesByUser := map[uint]float64{}

	var contentRows []models.ContentProgress
	if err := s.db.Where("updated_at >= ? AND updated_at < ?", dayStart, dayEnd).
		Find(&contentRows).Error; err == nil {
		for _, row := range contentRows {
			delta := row.MinutesSpent - row.RolledUpMinutes
			if delta <= 0 {
				continue
			}
			minutesByUser[row.UserID] += delta
			// UpdateColumn не трогает updated_at, иначе строка снова
			// попала бы в окно следующей свёртки
			if err := s.db.Model(&models.ContentProgress{}).
				Where("id = ?", row.ID).
				UpdateColumn("rolled_up_minutes", row.MinutesSpent).Error; err != nil {
				s.logger.Printf("rollup: could not mark progress %d as rolled up: %v", row.ID, err)
			}
		}
	}

	for userID, minutes := range minutesByUser {
		activity := models.DailyActivity{
			UserID: userID,
			Date:   date,
		}
		if err := s.db.Where("user_id = ? AND date = ?", userID, date).
			FirstOrCreate(&activity).Error; err != nil {
			s.logger.Printf("rollup: could not upsert daily activity for user %d: %v", userID, err)
			continue
		}
		activity.Minutes += minutes
		if err := s.db.Save(&activity).Error; err != nil {
			s.logger.Printf("rollup: could not save daily activity for user %d: %v", userID, err)
		}
	}

	var symbolic []uint
	var activeUsers []uint
	if err := s.db.Model(&models.AccessLog{}).
		Where("accessed_at >= ? AND accessed_at < ?", dayStart, dayEnd).
		Distinct("user_id").
		Pluck("user_id", &activeUsers).Error; err == nil {
		symbolic = append(symbolic, activeUsers...)
	}

	var attemptUsers []uint
	if err := s.db.Model(&models.Attempt{}).
		Where("submitted_at >= ? AND submitted_at < ?", dayStart, dayEnd).
		Distinct("user_id").
		Pluck("user_id", &attemptUsers).Error; err == nil {
		symbolic = append(symbolic, attemptUsers...)
	}

	for _, userID := range symbolic {
		if _, ok := minutesByUser[userID]; ok {
			continue
		}
		minutesByUser[userID] = 5
		activity := models.DailyActivity{
			UserID:  userID,
			Date:    date,
			Minutes: 5,
		}
		if err := s.db.Where("user_id = ? AND date = ?", userID, date).
			FirstOrCreate(&activity).Error; err != nil {
			s.logger.Printf("rollup: could not upsert daily activity for user %d: %v", userID, err)
		}
	}

	s.logger.Printf("rollup: %s, %d users", date, len(minutesByUser))
}
