package app_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

type entry struct {
	Day    int
	Weight float64
	Sleep  float64
	Mood   int
}

func genEntry() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 28),
		gen.Float64Range(30, 200),
		gen.Float64Range(0, 24),
		gen.IntRange(1, 100),
	).Map(func(v []any) entry {
		return entry{Day: v[0].(int), Weight: v[1].(float64), Sleep: v[2].(float64), Mood: v[3].(int)}
	})
}

func submitEntry(ctx context.Context, c *app.Collection, e entry) (domain.HealthRecord, error) {
	f := c.Form()
	if err := f.SetDate(fmt.Sprintf("2024-02-%02d", e.Day)); err != nil {
		return domain.HealthRecord{}, err
	}
	if err := f.SetMeasure(domain.MetricWeight, domain.Of(e.Weight)); err != nil {
		return domain.HealthRecord{}, err
	}
	if err := f.SetMeasure(domain.MetricSleep, domain.Of(e.Sleep)); err != nil {
		return domain.HealthRecord{}, err
	}
	if err := f.SetMeasure(domain.MetricMood, domain.Of(float64(e.Mood))); err != nil {
		return domain.HealthRecord{}, err
	}
	return c.Submit(ctx)
}

// Every successful submit shows up exactly once and resets the form.
func TestSubmitAppearsOnceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("submitted record appears exactly once", prop.ForAll(
		func(entries []entry) bool {
			ctx := context.Background()
			c := app.NewCollection(newMockStore(), app.NewFormState(clock))
			for _, e := range entries {
				saved, err := submitEntry(ctx, c, e)
				if err != nil {
					return false
				}
				n := 0
				for _, r := range c.Records() {
					if r.ID == saved.ID {
						n++
					}
				}
				if n != 1 || c.Form().Draft() != app.DefaultDraft(fixedNow) {
					return false
				}
			}
			return len(c.Records()) == len(entries)
		},
		gen.SliceOf(genEntry()),
	))

	properties.TestingRun(t)
}

// After remove(x), a fresh load never returns x.
func TestRemoveThenLoadProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("removed ids never reload", prop.ForAll(
		func(entries []entry, pick int) bool {
			ctx := context.Background()
			store := newMockStore()
			c := app.NewCollection(store, app.NewFormState(clock))
			var ids []string
			for _, e := range entries {
				saved, err := submitEntry(ctx, c, e)
				if err != nil {
					return false
				}
				ids = append(ids, saved.ID)
			}
			if len(ids) == 0 {
				return true
			}
			victim := ids[pick%len(ids)]
			if err := c.Remove(ctx, victim); err != nil {
				return false
			}
			if err := c.Remove(ctx, victim); err != nil {
				return false
			}
			loaded, err := store.LoadAll(ctx, domain.Scope{})
			if err != nil {
				return false
			}
			for _, r := range loaded {
				if r.ID == victim {
					return false
				}
			}
			return len(loaded) == len(ids)-1
		},
		gen.SliceOf(genEntry()),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
