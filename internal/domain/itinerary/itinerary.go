// Package itinerary derives the day-by-day country ledger of a trip from its
// stages.
package itinerary

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// Crossing marks the place that controls all days ending after At.
type Crossing struct {
	At      time.Time
	Country string
	Special string
}

// DayStart truncates t to midnight in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// nights counts the calendar midnights a stage passes.
func nights(st entity.Stage, loc *time.Location) int {
	span := DayStart(st.Arrival, loc).Sub(DayStart(st.Departure, loc))
	return int(math.Round(span.Hours() / 24))
}

// CalendarDays lists every day from the first departure to the last arrival.
func CalendarDays(stages []entity.Stage, loc *time.Location) []time.Time {
	if len(stages) == 0 {
		return nil
	}
	first := DayStart(stages[0].Departure, loc)
	last := DayStart(stages[len(stages)-1].Arrival, loc)

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Crossings computes the ordered border crossings of a stage list. The first
// crossing is always the start location of the first stage.
func Crossings(stages []entity.Stage, s entity.Settings) []Crossing {
	if len(stages) == 0 {
		return nil
	}
	loc := s.Loc()
	first := stages[0]
	crossings := []Crossing{{
		At:      first.Departure,
		Country: first.StartLocation.Country,
		Special: first.StartLocation.Special,
	}}

	for _, st := range stages {
		var mid []Crossing
		if nights(st, loc) > 1 {
			switch st.Transport.Type {
			case entity.TransportOwnCar, entity.TransportOther:
				for _, mc := range st.Transport.MidnightCountries {
					// the country of a night controls the day it starts on
					end := DayStart(mc.Date, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
					mid = append(mid, Crossing{At: end, Country: mc.Country, Special: mc.Special})
				}
			case entity.TransportAirplane:
				mid = append(mid, Crossing{At: st.Departure.Add(24 * time.Hour), Country: s.SecondNightOnAirplane})
			case entity.TransportShipOrFerry:
				mid = append(mid, Crossing{At: st.Departure.Add(24 * time.Hour), Country: s.SecondNightOnShipOrFerry})
			}
		}
		crossings = append(crossings, mid...)

		current := crossings[len(crossings)-1]
		end := st.EndLocation
		if len(mid) > 0 || current.Country != end.Country || !strings.EqualFold(current.Special, end.Special) {
			crossings = append(crossings, Crossing{At: st.Arrival, Country: end.Country, Special: end.Special})
		}
	}

	sort.SliceStable(crossings, func(i, j int) bool {
		return crossings[i].At.Before(crossings[j].At)
	})
	return crossings
}

// lastPlaceOfWorkAnchor is the departure day of the last stage leaving the
// last place of work.
func lastPlaceOfWorkAnchor(stages []entity.Stage, place *entity.Place, loc *time.Location) (time.Time, bool) {
	if place == nil || place.Country == "" {
		return time.Time{}, false
	}
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i].StartLocation.Same(*place) {
			return DayStart(stages[i].Departure, loc), true
		}
	}
	return time.Time{}, false
}

// Derive builds the travel days of a trip. Purpose and meal flags of previous
// days are kept for matching dates; new days are professional. Refunds are
// left empty for the lump sum calculator.
func Derive(stages []entity.Stage, lastPlaceOfWork *entity.Place, previous []entity.TravelDay, s entity.Settings) []entity.TravelDay {
	loc := s.Loc()
	dates := CalendarDays(stages, loc)
	if len(dates) == 0 {
		return []entity.TravelDay{}
	}
	crossings := Crossings(stages, s)

	kept := make(map[string]entity.TravelDay, len(previous))
	for _, d := range previous {
		kept[dateKey(d.Date, loc)] = d
	}
	anchor, hasAnchor := lastPlaceOfWorkAnchor(stages, lastPlaceOfWork, loc)

	days := make([]entity.TravelDay, 0, len(dates))
	idx := 0
	for _, date := range dates {
		endOfDay := date.AddDate(0, 0, 1)
		for idx+1 < len(crossings) && endOfDay.After(crossings[idx+1].At) {
			idx++
		}

		day := entity.TravelDay{
			Date:    date,
			Country: crossings[idx].Country,
			Special: crossings[idx].Special,
			Purpose: entity.PurposeProfessional,
		}
		if hasAnchor && !date.Before(anchor) {
			day.Country = lastPlaceOfWork.Country
			day.Special = lastPlaceOfWork.Special
		}
		if prev, ok := kept[dateKey(date, loc)]; ok {
			if prev.Purpose != "" {
				day.Purpose = prev.Purpose
			}
			day.CateringNoRefund = prev.CateringNoRefund
		}
		days = append(days, day)
	}
	return days
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
