package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/entropy"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/script"
)

func TestFireOnlyOnce(t *testing.T) {
	c := NewCatalogue()
	firedCount := 0
	_, err := c.RegisterEvent(Event{
		Identifier:   "great_exhibition",
		Trigger:      script.Always,
		FireOnlyOnce: true,
		// MTTH of one day fires deterministically.
		MeanTimeToHappen: script.ConditionalWeight{Mode: script.WeightTime, Base: fixed.One},
		Immediate: script.EffectFunc(func(_, _, _ script.Scope) {
			firedCount++
		}),
	})
	require.NoError(t, err)
	c.Lock()

	r := NewRunner(c)
	rng := entropy.NewSource(9)
	fired := r.RollScope(rng, script.NoScope, script.NoScope, script.NoScope)
	assert.Equal(t, []string{"great_exhibition"}, fired)

	for day := 0; day < 10; day++ {
		assert.Empty(t, r.RollScope(rng, script.NoScope, script.NoScope, script.NoScope))
	}
	assert.Equal(t, 1, firedCount)
}

func TestTriggerGatesRolls(t *testing.T) {
	c := NewCatalogue()
	_, err := c.RegisterEvent(Event{
		Identifier:       "never_happens",
		Trigger:          script.Never,
		MeanTimeToHappen: script.ConditionalWeight{Mode: script.WeightTime, Base: fixed.One},
		Immediate: script.EffectFunc(func(_, _, _ script.Scope) {
			t.Fatal("gated event fired")
		}),
	})
	require.NoError(t, err)
	c.Lock()

	r := NewRunner(c)
	rng := entropy.NewSource(1)
	for day := 0; day < 50; day++ {
		assert.Empty(t, r.RollScope(rng, script.NoScope, script.NoScope, script.NoScope))
	}
}

func TestRollsAreSeedDeterministic(t *testing.T) {
	build := func() *Runner {
		c := NewCatalogue()
		_, err := c.RegisterEvent(Event{
			Identifier:       "bread_riots",
			Trigger:          script.Always,
			MeanTimeToHappen: script.ConditionalWeight{Mode: script.WeightTime, Base: fixed.FromInt(5)},
			Immediate:        script.EffectFunc(func(_, _, _ script.Scope) {}),
		})
		require.NoError(t, err)
		c.Lock()
		return NewRunner(c)
	}

	runA, runB := build(), build()
	rngA, rngB := entropy.NewSource(77), entropy.NewSource(77)
	for day := 0; day < 100; day++ {
		a := runA.RollScope(rngA, script.NoScope, script.NoScope, script.NoScope)
		b := runB.RollScope(rngB, script.NoScope, script.NoScope, script.NoScope)
		assert.Equal(t, a, b)
	}
}
