package models

import (
	"time"

	"gorm.io/gorm"
)

// AccessLog — телеметрия обращений к курсам и урокам.
type AccessLog struct {
	gorm.Model
	UserID     uint   `gorm:"index"`
	CourseCode string
	Action     string // "login", "course_view", "lesson_view"
	ClientMeta string // User-Agent и т.п.
	AccessedAt time.Time
}

// DailyActivity — свёртка минут занятий по календарным дням.
// Заполняется планировщиком, дашборд предпочитает её сырым логам.
type DailyActivity struct {
	gorm.Model
	UserID  uint   `gorm:"index:idx_daily_user_date,unique"`
	Date    string `gorm:"index:idx_daily_user_date,unique"` // YYYY-MM-DD
	Minutes float64
}
