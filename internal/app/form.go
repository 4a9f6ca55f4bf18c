package app

import (
	"sync"
	"time"

	"healthtrack/internal/domain"
)

// Field names one input of the entry form.
type Field string

// Form fields. Metric fields share their names with domain.Metric.
const (
	FieldDate     Field = "date"
	FieldWeight   Field = Field(domain.MetricWeight)
	FieldSleep    Field = Field(domain.MetricSleep)
	FieldSport    Field = Field(domain.MetricSport)
	FieldWater    Field = Field(domain.MetricWater)
	FieldEnergy   Field = Field(domain.MetricEnergy)
	FieldMood     Field = Field(domain.MetricMood)
	FieldStress   Field = Field(domain.MetricStress)
	FieldFoodType Field = "foodType"
)

// Fields lists every form field in display order.
var Fields = []Field{FieldDate, FieldWeight, FieldSleep, FieldSport, FieldWater, FieldFoodType, FieldEnergy, FieldMood, FieldStress}

// requiredFields must be present before a draft may be submitted.
var requiredFields = []Field{FieldDate, FieldWeight, FieldSleep}

const defaultScale = 50

// Draft is the record being composed or edited.
type Draft struct {
	Date      string          `json:"date"`
	Weight    domain.Measure  `json:"weight"`
	Sleep     domain.Measure  `json:"sleep"`
	Sport     domain.Measure  `json:"sport"`
	Water     domain.Measure  `json:"water"`
	Energy    domain.Measure  `json:"energy"`
	Mood      domain.Measure  `json:"mood"`
	Stress    domain.Measure  `json:"stress"`
	FoodType  domain.FoodType `json:"foodType"`
	EditingID string          `json:"editingId,omitempty"`
}

// DefaultDraft is the snapshot a form resets to.
func DefaultDraft(now time.Time) Draft {
	return Draft{
		Date:     now.Format(domain.DateLayout),
		Energy:   domain.Of(defaultScale),
		Mood:     domain.Of(defaultScale),
		Stress:   domain.Of(defaultScale),
		FoodType: domain.FoodBalanced,
	}
}

// Record builds the candidate record. ID is the editing id, if any.
func (d Draft) Record() domain.HealthRecord {
	return domain.HealthRecord{
		ID:       d.EditingID,
		Date:     d.Date,
		Weight:   d.Weight,
		Sleep:    d.Sleep,
		Sport:    d.Sport,
		Water:    d.Water,
		Energy:   d.Energy,
		Mood:     d.Mood,
		Stress:   d.Stress,
		FoodType: d.FoodType,
	}
}

func (d *Draft) measure(m domain.Metric) *domain.Measure {
	switch m {
	case domain.MetricWeight:
		return &d.Weight
	case domain.MetricSleep:
		return &d.Sleep
	case domain.MetricSport:
		return &d.Sport
	case domain.MetricWater:
		return &d.Water
	case domain.MetricEnergy:
		return &d.Energy
	case domain.MetricMood:
		return &d.Mood
	case domain.MetricStress:
		return &d.Stress
	}
	return nil
}

// FormState owns the single in-progress draft.
type FormState struct {
	mu    sync.Mutex
	draft Draft
	now   func() time.Time
}

// NewFormState returns a form holding the default draft. now supplies
// "today"; nil means time.Now.
func NewFormState(now func() time.Time) *FormState {
	if now == nil {
		now = time.Now
	}
	return &FormState{draft: DefaultDraft(now()), now: now}
}

// Draft returns a copy of the current draft.
func (f *FormState) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SetField parses raw input for field and stores it. On error the draft is
// left unchanged.
func (f *FormState) SetField(field Field, raw string) error {
	switch field {
	case FieldDate:
		return f.SetDate(raw)
	case FieldFoodType:
		return f.SetFoodType(domain.FoodType(raw))
	case FieldWeight, FieldSleep, FieldSport, FieldWater, FieldEnergy, FieldMood, FieldStress:
		v, err := domain.ParseMeasure(raw)
		if err != nil {
			return domain.Invalidf(string(field), err.Error())
		}
		return f.SetMeasure(domain.Metric(field), v)
	}
	return domain.Invalidf(string(field), "is not a form field")
}

// SetDate stores a YYYY-MM-DD date. An empty date clears the field.
func (f *FormState) SetDate(date string) error {
	if date != "" {
		if err := domain.CheckDate(date); err != nil {
			return domain.Invalidf(string(FieldDate), err.Error())
		}
	}
	f.mu.Lock()
	f.draft.Date = date
	f.mu.Unlock()
	return nil
}

// SetFoodType stores a diet category.
func (f *FormState) SetFoodType(ft domain.FoodType) error {
	if !ft.Valid() {
		return domain.Invalidf(string(FieldFoodType), "must be one of balanced, vegetarian, vegan, low-carb, high-protein, junk-food")
	}
	f.mu.Lock()
	f.draft.FoodType = ft
	f.mu.Unlock()
	return nil
}

// SetMeasure stores a metric value after a range check.
func (f *FormState) SetMeasure(m domain.Metric, v domain.Measure) error {
	if err := domain.CheckRange(m, v); err != nil {
		return domain.Invalidf(string(m), err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.draft.measure(m)
	if p == nil {
		return domain.Invalidf(string(m), "is not a form field")
	}
	*p = v
	return nil
}

// LoadForEdit copies rec into the form and marks it as being edited.
func (f *FormState) LoadForEdit(rec domain.HealthRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = Draft{
		Date:      rec.Date,
		Weight:    rec.Weight,
		Sleep:     rec.Sleep,
		Sport:     rec.Sport,
		Water:     rec.Water,
		Energy:    rec.Energy,
		Mood:      rec.Mood,
		Stress:    rec.Stress,
		FoodType:  rec.FoodType,
		EditingID: rec.ID,
	}
}

// Reset restores the default draft and clears the editing id.
func (f *FormState) Reset() {
	f.mu.Lock()
	f.draft = DefaultDraft(f.now())
	f.mu.Unlock()
}

// ValidateRequired reports required fields that are empty.
func (f *FormState) ValidateRequired() error {
	return validateRequired(f.Draft())
}

// Validate checks required fields and the ranges of everything present.
// Drafts loaded from stored records skip the setters, so ranges are
// re-checked here.
func (f *FormState) Validate() error {
	return validateDraft(f.Draft())
}

func validateRequired(d Draft) error {
	var missing []string
	for _, field := range requiredFields {
		if field == FieldDate {
			if d.Date == "" {
				missing = append(missing, string(field))
			}
			continue
		}
		if !d.measure(domain.Metric(field)).Valid {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Missing: missing}
	}
	return nil
}

func validateDraft(d Draft) error {
	verr := &domain.ValidationError{}
	if err := validateRequired(d); err != nil {
		verr = err.(*domain.ValidationError)
	}
	invalid := map[string]string{}
	if d.Date != "" {
		if err := domain.CheckDate(d.Date); err != nil {
			invalid[string(FieldDate)] = err.Error()
		}
	}
	for _, m := range domain.Metrics {
		if err := domain.CheckRange(m, *d.measure(m)); err != nil {
			invalid[string(m)] = err.Error()
		}
	}
	if d.FoodType != "" && !d.FoodType.Valid() {
		invalid[string(FieldFoodType)] = "is not a known diet category"
	}
	if len(invalid) > 0 {
		verr.Invalid = invalid
	}
	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	return verr
}
