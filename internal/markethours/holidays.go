package markethours

import "time"

// NYSE full-day holidays. Observed dates, so July 4 falling on a weekend
// appears as the observed weekday.
var nyseHolidays = map[int][]struct {
	month time.Month
	day   int
}{
	2025: {
		{time.January, 1},   // New Year's Day
		{time.January, 20},  // Martin Luther King Jr. Day
		{time.February, 17}, // Presidents' Day
		{time.April, 18},    // Good Friday
		{time.May, 26},      // Memorial Day
		{time.June, 19},     // Juneteenth
		{time.July, 4},      // Independence Day
		{time.September, 1}, // Labor Day
		{time.November, 27}, // Thanksgiving
		{time.December, 25}, // Christmas
	},
	2026: {
		{time.January, 1},   // New Year's Day
		{time.January, 19},  // Martin Luther King Jr. Day
		{time.February, 16}, // Presidents' Day
		{time.April, 3},     // Good Friday
		{time.May, 25},      // Memorial Day
		{time.June, 19},     // Juneteenth
		{time.July, 3},      // Independence Day (observed)
		{time.September, 7}, // Labor Day
		{time.November, 26}, // Thanksgiving
		{time.December, 25}, // Christmas
	},
}

// pre-compute for fast lookup
var holidaySet map[string]bool

func init() {
	holidaySet = make(map[string]bool)
	for year, days := range nyseHolidays {
		for _, h := range days {
			holidaySet[dateKey(year, h.month, h.day)] = true
		}
	}
}

// IsHoliday returns true if the date (in Eastern time) is an NYSE holiday.
// Years outside the table are treated as holiday-free.
func IsHoliday(t time.Time) bool {
	et := t.In(Eastern)
	return holidaySet[dateKey(et.Year(), et.Month(), et.Day())]
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, Eastern).Format("2006-01-02")
}
