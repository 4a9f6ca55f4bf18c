package app

import (
	"errors"

	"healthtrack/internal/domain"
)

// Point is one (date, value) pair of a series. Value is nil for a gap.
type Point struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Series is the projection of one metric across the collection.
type Series struct {
	Metric domain.Metric `json:"metric"`
	Label  string        `json:"label"`
	Unit   string        `json:"unit,omitempty"`
	Points []Point       `json:"points"`
}

// Chart is the multi-series dataset shown above the records table.
type Chart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

var seriesLabels = map[domain.Metric]string{
	domain.MetricWeight: "Weight",
	domain.MetricSleep:  "Sleep",
	domain.MetricEnergy: "Energy Level",
	domain.MetricMood:   "Mood",
	domain.MetricSport:  "Sport",
	domain.MetricStress: "Stress Level",
	domain.MetricWater:  "Water",
}

var seriesUnits = map[domain.Metric]string{
	domain.MetricWeight: domain.UnitKg,
	domain.MetricSleep:  "hours",
	domain.MetricSport:  "minutes",
	domain.MetricWater:  "liters",
}

// Project derives one series per numeric metric from records, in collection
// order. Absent values become gaps. Food type is categorical and is not
// charted.
func Project(records []domain.HealthRecord) Chart {
	chart, _ := ProjectIn(records, domain.UnitKg)
	return chart
}

// ProjectIn is Project with weight expressed in unit ("kg" or "lb").
func ProjectIn(records []domain.HealthRecord, unit string) (Chart, error) {
	if unit != domain.UnitKg && unit != domain.UnitLb {
		return Chart{}, errors.New("unit must be \"kg\" or \"lb\"")
	}

	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = r.Date
	}

	series := make([]Series, 0, len(domain.Metrics))
	for _, m := range domain.Metrics {
		s := Series{Metric: m, Label: seriesLabels[m], Unit: seriesUnits[m], Points: make([]Point, len(records))}
		if m == domain.MetricWeight {
			s.Unit = unit
		}
		for i, r := range records {
			v := r.Get(m)
			if v.Valid && m == domain.MetricWeight {
				v = domain.Of(domain.ConvertWeight(v.Float64, domain.UnitKg, unit))
			}
			s.Points[i] = Point{Date: r.Date, Value: v.Ptr()}
		}
		series = append(series, s)
	}
	return Chart{Labels: labels, Series: series}, nil
}

// Find returns the series for metric m.
func (c Chart) Find(m domain.Metric) (Series, bool) {
	for _, s := range c.Series {
		if s.Metric == m {
			return s, true
		}
	}
	return Series{}, false
}
