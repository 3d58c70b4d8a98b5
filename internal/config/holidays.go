package config

import (
	"sort"
	"time"
)

// Holiday is a public holiday on which every site closes.
type Holiday struct {
	Date time.Time
	Name string
}

// PublicHolidays returns the Rwandan public holidays of year that follow a
// fixed rule, sorted by date. Eid al-Fitr and Eid al-Adha depend on moon
// sightings and must be listed under closures in hours.yaml.
func PublicHolidays(year int) []Holiday {
	holidays := []Holiday{
		{date(year, time.January, 1), "New Year's Day"},
		{date(year, time.January, 2), "Day after New Year's Day"},
		{date(year, time.February, 1), "National Heroes' Day"},
		{date(year, time.April, 7), "Genocide against the Tutsi Memorial Day"},
		{date(year, time.May, 1), "Labour Day"},
		{date(year, time.July, 1), "Independence Day"},
		{date(year, time.July, 4), "Liberation Day"},
		{firstWeekday(year, time.August, time.Friday), "Umuganura Day"},
		{date(year, time.August, 15), "Assumption Day"},
		{date(year, time.December, 25), "Christmas Day"},
		{date(year, time.December, 26), "Boxing Day"},
	}

	easter := calculateEaster(year)
	holidays = append(holidays,
		Holiday{easter.AddDate(0, 0, -2), "Good Friday"},
		Holiday{easter.AddDate(0, 0, 1), "Easter Monday"},
	)

	sort.SliceStable(holidays, func(i, j int) bool {
		return holidays[i].Date.Before(holidays[j].Date)
	})
	return holidays
}

// calculateEaster calculates Easter Sunday using the Meeus/Jones/Butcher algorithm
func calculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return date(year, time.Month(month), day)
}

func firstWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := date(year, month, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
