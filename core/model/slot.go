package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for schedule dates.
const DateLayout = "2006-01-02"

// Slot identifies a single hour of a calendar day.
type Slot struct {
	Date string `json:"date"` // formatted with DateLayout
	Hour int    `json:"hour"` // 0-23
}

// SlotAt returns the slot containing the given instant.
func SlotAt(t time.Time) Slot {
	return Slot{Date: t.Format(DateLayout), Hour: t.Hour()}
}

// Time returns the start of the slot in the given location.
func (s Slot) Time(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("slot date %q: %w", s.Date, err)
	}
	return d.Add(time.Duration(s.Hour) * time.Hour), nil
}

// HoursFrom returns the signed number of hours between now and the start of
// the slot. Negative values mean the slot is in the past.
func (s Slot) HoursFrom(now time.Time) (float64, error) {
	t, err := s.Time(now.Location())
	if err != nil {
		return 0, err
	}
	return t.Sub(now).Hours(), nil
}

func (s Slot) String() string { return fmt.Sprintf("%s %02d:00", s.Date, s.Hour) }

// PriceKind selects between purchase and feed-in price curves.
type PriceKind string

const (
	PriceBuy  PriceKind = "buy"
	PriceSell PriceKind = "sell"
)

// PricePoint is an hourly market price. Unique per (slot, kind).
type PricePoint struct {
	Slot
	Value float64 `json:"value"`
}

// ForecastPoint is the expected PV production for one hour.
type ForecastPoint struct {
	Slot
	KWh float64 `json:"kwh"`
}

// ZeroForecast returns an all-zero hourly forecast starting at the hour
// containing now. Consumers never see a nil forecast.
func ZeroForecast(now time.Time, hours int) []ForecastPoint {
	points := make([]ForecastPoint, 0, hours)
	for i := 0; i < hours; i++ {
		points = append(points, ForecastPoint{Slot: SlotAt(now.Add(time.Duration(i) * time.Hour))})
	}
	return points
}

// TimeOfDay is a wall-clock time without a date, e.g. an EV charge deadline.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var td TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &td.Hour, &td.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: %w", s, err)
	}
	if td.Hour < 0 || td.Hour > 23 || td.Minute < 0 || td.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return td, nil
}

// NextAfter returns the first occurrence of the time of day strictly after now.
func (td TimeOfDay) NextAfter(now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), td.Hour, td.Minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.Add(24 * time.Hour)
	}
	return t
}

func (td TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", td.Hour, td.Minute) }
