package core

import "time"

// WeekStart rolls a date back to the most recent Monday. Weeks run
// Monday through Sunday, so a Sunday rolls back six days.
func WeekStart(d Date) Date {
	switch wd := d.Weekday(); wd {
	case time.Monday:
		return d
	case time.Sunday:
		return d.AddDays(-6)
	default:
		return d.AddDays(-(int(wd) - 1))
	}
}

// WeekEnd returns the Sunday closing the week of the given date.
func WeekEnd(d Date) Date {
	return WeekStart(d).AddDays(6)
}
