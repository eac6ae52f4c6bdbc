package entity

import "time"

// MealCuts are the fractions deducted per provided meal.
type MealCuts struct {
	Breakfast float64 `json:"breakfast"`
	Lunch     float64 `json:"lunch"`
	Dinner    float64 `json:"dinner"`
}

// Factor is a global multiplier with countries exempt from it.
type Factor struct {
	Factor     float64  `json:"factor"`
	Exceptions []string `json:"exceptions,omitempty"`
}

// For returns 1 for exempt countries and the global factor otherwise.
func (f Factor) For(country string) float64 {
	for _, c := range f.Exceptions {
		if c == country {
			return 1
		}
	}
	return f.Factor
}

// Settings are the calculation constants threaded through the calculator and
// aggregator.
type Settings struct {
	BaseCurrency      string             `json:"baseCurrency"`
	MealCuts          MealCuts           `json:"mealCuts"`
	CateringFactor    Factor             `json:"cateringFactor"`
	OvernightFactor   Factor             `json:"overnightFactor"`
	AllowSpouseRefund bool               `json:"allowSpouseRefund"`
	DistanceRefunds   map[string]float64 `json:"distanceRefunds"`
	// Countries assumed for the second night of long air and sea legs.
	SecondNightOnAirplane    string `json:"secondNightOnAirplane"`
	SecondNightOnShipOrFerry string `json:"secondNightOnShipOrFerry"`
	// FallbackLumpSumCountry is used when a country has no valid set.
	FallbackLumpSumCountry   string         `json:"fallbackLumpSumCountry"`
	AllowDiscontinuousStages bool           `json:"allowDiscontinuousStages"`
	Location                 *time.Location `json:"-"`
}

// Loc returns the time zone days are cut in.
func (s Settings) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		BaseCurrency:   "EUR",
		MealCuts:       MealCuts{Breakfast: 0.2, Lunch: 0.4, Dinner: 0.4},
		CateringFactor: Factor{Factor: 1},
		OvernightFactor: Factor{
			Factor: 1,
		},
		DistanceRefunds: map[string]float64{
			DistanceRefundCar:        0.30,
			DistanceRefundMotorcycle: 0.20,
			DistanceRefundHalfCar:    0.15,
		},
		SecondNightOnAirplane:    "DE",
		SecondNightOnShipOrFerry: "LU",
		FallbackLumpSumCountry:   "LU",
		Location:                 time.UTC,
	}
}
