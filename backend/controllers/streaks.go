package controllers

import (
	"sort"
	"time"

	"lingua/backend/models"
)

const dateLayout = "2006-01-02"

// Итальянские сокращения дней недели, индекс — time.Weekday
var weekdayLabels = [7]string{"dom", "lun", "mar", "mer", "gio", "ven", "sab"}

// currentStreak считает подряд идущие дни активности, заканчивающиеся
// сегодня или вчера. Разрыв в один день перед сегодняшним днём ещё не
// обрывает серию, разрыв в два и больше — обрывает.
func currentStreak(days map[string]bool, today time.Time) int {
	day := today
	if !days[day.Format(dateLayout)] {
		day = day.AddDate(0, 0, -1)
		if !days[day.Format(dateLayout)] {
			return 0
		}
	}

	streak := 0
	for days[day.Format(dateLayout)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// longestStreak — самая длинная серия подряд идущих календарных дней
func longestStreak(days map[string]bool) int {
	if len(days) == 0 {
		return 0
	}

	dates := make([]time.Time, 0, len(days))
	for d := range days {
		parsed, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		dates = append(dates, parsed)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest, run := 0, 0
	var prev time.Time
	for i, d := range dates {
		if i > 0 && d.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}
	return longest
}

// weeklySeries строит ряд из семи последних дней, от старшего к сегодняшнему.
// Если поминутная свёртка недоступна, общее время размазывается поровну.
func weeklySeries(minutesByDay map[string]float64, today time.Time, fallbackTotal float64) []models.WeeklyPoint {
	series := make([]models.WeeklyPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		date := day.Format(dateLayout)

		minutes := 0.0
		if minutesByDay != nil {
			minutes = minutesByDay[date]
		} else if fallbackTotal > 0 {
			minutes = fallbackTotal / 7
		}

		series = append(series, models.WeeklyPoint{
			Day:     weekdayLabels[day.Weekday()],
			Date:    date,
			Minutes: minutes,
		})
	}
	return series
}
