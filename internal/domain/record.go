package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar date format used for HealthRecord.Date.
const DateLayout = "2006-01-02"

// FoodType is the diet category logged for a day.
type FoodType string

// Known diet categories.
const (
	FoodBalanced    FoodType = "balanced"
	FoodVegetarian  FoodType = "vegetarian"
	FoodVegan       FoodType = "vegan"
	FoodLowCarb     FoodType = "low-carb"
	FoodHighProtein FoodType = "high-protein"
	FoodJunk        FoodType = "junk-food"
)

// FoodTypes lists the diet categories in display order.
var FoodTypes = []FoodType{FoodBalanced, FoodVegetarian, FoodVegan, FoodLowCarb, FoodHighProtein, FoodJunk}

// Valid reports whether f is a known category.
func (f FoodType) Valid() bool {
	for _, k := range FoodTypes {
		if f == k {
			return true
		}
	}
	return false
}

// HealthRecord is one logged day's metrics.
type HealthRecord struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Weight    Measure   `json:"weight"`
	Sleep     Measure   `json:"sleep"`
	Sport     Measure   `json:"sport"`
	Water     Measure   `json:"water"`
	Energy    Measure   `json:"energy"`
	Mood      Measure   `json:"mood"`
	Stress    Measure   `json:"stress"`
	FoodType  FoodType  `json:"foodType"`
	UserID    int64     `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Metric names a numeric field of a HealthRecord.
type Metric string

// Numeric metrics, in chart order.
const (
	MetricWeight Metric = "weight"
	MetricSleep  Metric = "sleep"
	MetricEnergy Metric = "energy"
	MetricMood   Metric = "mood"
	MetricSport  Metric = "sport"
	MetricStress Metric = "stress"
	MetricWater  Metric = "water"
)

// Metrics lists every numeric metric in chart order.
var Metrics = []Metric{MetricWeight, MetricSleep, MetricEnergy, MetricMood, MetricSport, MetricStress, MetricWater}

// Get returns the value of metric m on r.
func (r HealthRecord) Get(m Metric) Measure {
	switch m {
	case MetricWeight:
		return r.Weight
	case MetricSleep:
		return r.Sleep
	case MetricEnergy:
		return r.Energy
	case MetricMood:
		return r.Mood
	case MetricSport:
		return r.Sport
	case MetricStress:
		return r.Stress
	case MetricWater:
		return r.Water
	}
	return Measure{}
}

// Set stores v into metric m on r.
func (r *HealthRecord) Set(m Metric, v Measure) {
	switch m {
	case MetricWeight:
		r.Weight = v
	case MetricSleep:
		r.Sleep = v
	case MetricEnergy:
		r.Energy = v
	case MetricMood:
		r.Mood = v
	case MetricSport:
		r.Sport = v
	case MetricStress:
		r.Stress = v
	case MetricWater:
		r.Water = v
	}
}

// CheckRange validates v against the declared range of metric m. Absent
// values always pass; presence is checked separately.
func CheckRange(m Metric, v Measure) error {
	if !v.Valid {
		return nil
	}
	x := v.Float64
	switch m {
	case MetricWeight:
		if x <= 0 {
			return fmt.Errorf("must be > 0")
		}
	case MetricSleep:
		if x < 0 || x > 24 {
			return fmt.Errorf("must be within [0, 24]")
		}
	case MetricSport, MetricWater:
		if x < 0 {
			return fmt.Errorf("must be >= 0")
		}
	case MetricEnergy, MetricMood, MetricStress:
		if x < 1 || x > 100 || x != math.Trunc(x) {
			return fmt.Errorf("must be a whole number within [1, 100]")
		}
	}
	return nil
}

// CheckDate validates a YYYY-MM-DD calendar date.
func CheckDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%q is not a YYYY-MM-DD date", s)
	}
	return nil
}

// Scope identifies whose records a store call may see. The zero Scope is the
// single-user local scope.
type Scope struct {
	UserID int64
}

// IsZero reports whether s is the unauthenticated local scope.
func (s Scope) IsZero() bool { return s.UserID == 0 }

// RecordStore is the persistence port for health records.
type RecordStore interface {
	// LoadAll returns every record visible to scope.
	LoadAll(ctx context.Context, scope Scope) ([]HealthRecord, error)
	// Insert persists a new record and returns it with any store-assigned fields.
	Insert(ctx context.Context, rec HealthRecord, scope Scope) (HealthRecord, error)
	// Update replaces the record with the given id.
	Update(ctx context.Context, id string, rec HealthRecord, scope Scope) (HealthRecord, error)
	// DeleteByID removes a record; deleting an absent id succeeds.
	DeleteByID(ctx context.Context, id string, scope Scope) error
}
