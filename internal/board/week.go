package board

import "time"

// startOfWeek returns midnight of the most recent start weekday at or
// before t, in t's location.
func startOfWeek(t time.Time, start time.Weekday) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	back := (int(t.Weekday()) - int(start) + 7) % 7
	return midnight.AddDate(0, 0, -back)
}

// endOfWeek returns the last day of the week containing t.
func endOfWeek(t time.Time, start time.Weekday) time.Time {
	return startOfWeek(t, start).AddDate(0, 0, 6)
}
