// Package schedule provides the study-day calendar and the built-in lesson
// dataset shown while no timetable backend is connected.
package schedule

import "time"

// Lesson is one timetable slot.
type Lesson struct {
	Subject    string
	Teacher    string
	Time       string
	Room       string
	OnlineLink string
}

// Day is one calendar cell.
type Day struct {
	Number  int
	Date    time.Time
	Study   bool
	Today   bool
	Weekday int
}

// mondayIndex converts Go's Sunday-first weekday to the Monday-first index
// used everywhere in the calendar.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// IsStudyDay reports whether date falls on a study day. Monday through Friday
// are study days.
func IsStudyDay(date time.Time) bool {
	return mondayIndex(date.Weekday()) < 5
}

// MonthCalendar builds the calendar cells for one month. The cell matching
// today's date is marked; today is compared by calendar day, not by instant.
func MonthCalendar(year int, month time.Month, today time.Time) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, today.Location())
	numDays := first.AddDate(0, 1, -1).Day()
	ty, tm, td := today.Date()

	days := make([]Day, 0, numDays)
	for n := 1; n <= numDays; n++ {
		date := time.Date(year, month, n, 0, 0, 0, 0, today.Location())
		days = append(days, Day{
			Number:  n,
			Date:    date,
			Study:   IsStudyDay(date),
			Today:   year == ty && month == tm && n == td,
			Weekday: mondayIndex(date.Weekday()),
		})
	}
	return days
}

// ParseDate parses a DD.MM.YYYY date as entered by users.
func ParseDate(s string) (time.Time, bool) {
	date, err := time.Parse("02.01.2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

var weekdayLessons = map[int][]Lesson{
	0: {
		{Subject: "Математика", Teacher: "Иванов И.И.", Time: "09:00-10:30", Room: "101"},
		{Subject: "Программирование", Teacher: "Петров П.П.", Time: "10:45-12:15", Room: "203", OnlineLink: "https://meet.google.com/abc-def-ghi"},
	},
	1: {
		{Subject: "Физика", Teacher: "Сидоров А.В.", Time: "09:00-10:30", Room: "105"},
		{Subject: "Английский язык", Teacher: "Кузнецова О.Л.", Time: "11:00-12:30", Room: "301"},
	},
	2: {
		{Subject: "Программирование", Teacher: "Петров П.П.", Time: "13:00-14:30", Room: "203", OnlineLink: "https://meet.google.com/xyz-uvw-rst"},
		{Subject: "Базы данных", Teacher: "Николаев С.М.", Time: "15:00-16:30", Room: "205"},
	},
	3: {
		{Subject: "Математика", Teacher: "Иванов И.И.", Time: "10:00-11:30", Room: "102"},
		{Subject: "Физкультура", Teacher: "Алексеев В.П.", Time: "12:00-13:30", Room: "спортзал"},
	},
	4: {
		{Subject: "Веб-разработка", Teacher: "Смирнова Т.К.", Time: "09:00-10:30", Room: "210"},
		{Subject: "Проектная деятельность", Teacher: "Петров П.П.", Time: "11:00-13:00", Room: "203", OnlineLink: "https://meet.google.com/mno-pqr-stu"},
	},
}

// Lessons returns the timetable for date. Weekends have no lessons.
func Lessons(date time.Time) []Lesson {
	return weekdayLessons[mondayIndex(date.Weekday())]
}
