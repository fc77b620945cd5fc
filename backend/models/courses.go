package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Code        string `gorm:"uniqueIndex;not null"` // например "ITA1"
	Title       string
	Language    string // изучаемый язык, например "italian"
	Description string
	Levels      int  `gorm:"default:1"`
	Active      bool `gorm:"default:true"`
}

// AccessCode открывает один курс при регистрации или через /courses/unlock
type AccessCode struct {
	gorm.Model
	Code       string `gorm:"uniqueIndex;not null"`
	CourseCode string `gorm:"not null"`
	RedeemedBy uint // 0 пока код не использован
	RedeemedAt *time.Time
}

// CourseUnlock — право пользователя на курс
type CourseUnlock struct {
	gorm.Model
	UserID     uint   `gorm:"index:idx_unlock_user_course,unique"`
	CourseCode string `gorm:"index:idx_unlock_user_course,unique"`
	UnlockedAt time.Time
}

// CourseProgress — агрегат по курсу: сколько уроков пройдено и сколько
// минут потрачено. Необязательная таблица, дашборд переживает её отсутствие
type CourseProgress struct {
	gorm.Model
	UserID           uint   `gorm:"index:idx_cp_user_course,unique"`
	CourseCode       string `gorm:"index:idx_cp_user_course,unique"`
	LessonsCompleted int
	MinutesSpent     float64
	LastAccessed     time.Time
}

// ContentProgress — время, проведённое на материале одного урока
type ContentProgress struct {
	gorm.Model
	UserID          uint   `gorm:"index:idx_ctp_user_lesson,unique"`
	CourseCode      string `gorm:"index:idx_ctp_user_lesson,unique"`
	Level           int    `gorm:"index:idx_ctp_user_lesson,unique"`
	Lesson          int    `gorm:"index:idx_ctp_user_lesson,unique"`
	MinutesSpent    float64
	RolledUpMinutes float64 // сколько из minutes_spent уже ушло в daily_activities
}
