// Package aggregate builds time histograms and derived shares over normalized records.
package aggregate

import "github.com/joshsymonds/chronocadence/internal/ingest"

const (
	HoursPerDay = 24
	DaysPerWeek = 7
	Months      = 12
	Seasons     = 4

	BusinessStartHour = 9
	BusinessEndHour   = 17 // inclusive
	OffHoursStart     = 22 // 22:00-04:59 counts as off hours
	OffHoursEnd       = 4
	Saturday          = 5
	Sunday            = 6
)

var seasonNames = [Seasons]string{"spring", "summer", "autumn", "winter"}

// SeasonName maps a season bucket to its name.
func SeasonName(i int) string {
	if i < 0 || i >= Seasons {
		return ""
	}
	return seasonNames[i]
}

// SeasonOf maps a 1-12 month to its season bucket: 0 spring (Mar-May), 1 summer,
// 2 autumn, 3 winter (Dec-Feb).
func SeasonOf(month int) int {
	switch month {
	case 3, 4, 5:
		return 0
	case 6, 7, 8:
		return 1
	case 9, 10, 11:
		return 2
	default:
		return 3
	}
}

// Peak is the busiest bucket of a histogram.
type Peak struct {
	Index int     `json:"index"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Bundle holds every aggregate computed for one analysis run.
type Bundle struct {
	Total   int                           `json:"total"`
	Dropped int                           `json:"dropped"`
	Hourly  [HoursPerDay]int              `json:"hourly"`
	Weekday [DaysPerWeek]int              `json:"weekday"`
	Monthly [Months]int                   `json:"monthly"`
	Season  [Seasons]int                  `json:"seasonal"`
	Joint   [DaysPerWeek][HoursPerDay]int `json:"joint"`

	PeakHour    Peak `json:"peak_hour"`
	PeakWeekday Peak `json:"peak_weekday"`
	PeakMonth   Peak `json:"peak_month"`
	PeakSeason  Peak `json:"peak_season"`

	BusinessHoursShare float64 `json:"business_hours_share"`
	WeekendShare       float64 `json:"weekend_share"`
	OffHoursShare      float64 `json:"off_hours_share"`
}

// Aggregate counts records into every histogram. It does not modify records.
// Records with an hour, weekday or month out of range are not counted; they are
// reported in Dropped so Total+Dropped always equals len(records).
func Aggregate(records []ingest.Record) Bundle {
	var b Bundle
	var business, weekend, offHours int
	for _, r := range records {
		if !validFields(r) {
			b.Dropped++
			continue
		}
		b.Total++
		b.Hourly[r.Hour]++
		b.Weekday[r.Weekday]++
		b.Monthly[r.Month-1]++
		b.Season[SeasonOf(r.Month)]++
		b.Joint[r.Weekday][r.Hour]++
		if IsBusinessHour(r.Hour) {
			business++
		}
		if IsWeekend(r.Weekday) {
			weekend++
		}
		if IsOffHour(r.Hour) {
			offHours++
		}
	}

	b.PeakHour = PeakOf(b.Hourly[:], b.Total)
	b.PeakWeekday = PeakOf(b.Weekday[:], b.Total)
	b.PeakMonth = PeakOf(b.Monthly[:], b.Total)
	b.PeakSeason = PeakOf(b.Season[:], b.Total)
	b.BusinessHoursShare = share(business, b.Total)
	b.WeekendShare = share(weekend, b.Total)
	b.OffHoursShare = share(offHours, b.Total)
	return b
}

// PeakOf returns the bucket with the greatest count; ties go to the lowest index.
func PeakOf(counts []int, total int) Peak {
	var p Peak
	for i, c := range counts {
		if c > p.Count {
			p = Peak{Index: i, Count: c}
		}
	}
	p.Share = share(p.Count, total)
	return p
}

// IsBusinessHour reports whether hour falls in 09:00-17:59.
func IsBusinessHour(hour int) bool {
	return hour >= BusinessStartHour && hour <= BusinessEndHour
}

// IsWeekend reports whether a 0=Monday weekday is Saturday or Sunday.
func IsWeekend(weekday int) bool {
	return weekday == Saturday || weekday == Sunday
}

// IsOffHour reports whether hour falls in 22:00-04:59.
func IsOffHour(hour int) bool {
	return hour >= OffHoursStart || hour <= OffHoursEnd
}

// Records from ingest always carry in-range fields; this guards hand-built input.
func validFields(r ingest.Record) bool {
	return r.Hour >= 0 && r.Hour < HoursPerDay &&
		r.Weekday >= 0 && r.Weekday < DaysPerWeek &&
		r.Month >= 1 && r.Month <= Months
}

func share(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}
