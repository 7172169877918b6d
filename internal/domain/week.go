package domain

import (
	"fmt"
	"time"
)

// ISOWeek is an ISO-8601 week (weeks start Monday; week 1 holds the year's first Thursday).
type ISOWeek struct {
	Week int `json:"week"`
	Year int `json:"year"`
}

// WeekOf returns the ISO week containing t, evaluated in UTC so every node agrees on the key.
func WeekOf(t time.Time) ISOWeek {
	year, week := t.UTC().ISOWeek()
	return ISOWeek{Week: week, Year: year}
}

// Previous returns the ISO week before w.
func (w ISOWeek) Previous() ISOWeek {
	return WeekOf(w.Monday().AddDate(0, 0, -7))
}

// Monday returns 00:00 UTC on the Monday that starts w.
func (w ISOWeek) Monday() time.Time {
	// January 4th is always in week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (w.Week-1)*7)
}

// Valid reports whether the week number exists in the ISO year.
func (w ISOWeek) Valid() bool {
	if w.Week < 1 || w.Week > 53 {
		return false
	}
	return WeekOf(w.Monday()) == w
}

func (w ISOWeek) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Week)
}
