package models

// WeeklyPoint — минуты занятий за один из последних семи дней.
type WeeklyPoint struct {
	Day     string  `json:"day"` // локализованное сокращение: lun, mar, ...
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
}

// DashboardSummary — вычисляемая сводка для дашборда. Не хранится,
// пересчитывается на каждый запрос.
type DashboardSummary struct {
	TotalCourses       int           `json:"total_courses"`
	CompletedCourses   int           `json:"completed_courses"`
	InProgressCourses  int           `json:"in_progress_courses"`
	TotalHours         float64       `json:"total_hours"`
	CurrentStreak      int           `json:"current_streak"`
	LongestStreak      int           `json:"longest_streak"`
	LastActivityDate   string        `json:"last_activity_date"` // YYYY-MM-DD
	WeeklyProgress     []WeeklyPoint `json:"weekly_progress"`
	TotalExercises     int           `json:"total_exercises"`
	CompletedExercises int           `json:"completed_exercises"`
	ContentViewed      int           `json:"content_viewed"`
	StudySessions      int           `json:"study_sessions"`
	ActiveDays         int           `json:"active_days"`
}
