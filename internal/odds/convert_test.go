package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpliedProb(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"-150", 0.6},
		{"150", 0.4},
		{"+150", 0.4},
		{"0", 1.0},
		{"-110", 110.0 / 210.0},
		{"120", 100.0 / 220.0},
		{" -125 ", 125.0 / 225.0},
		{"-150.0", 0.6},
	}
	for _, tt := range tests {
		p := ImpliedProb(tt.in)
		require.NotNil(t, p, tt.in)
		assert.InDelta(t, tt.want, *p, 1e-9, tt.in)
	}
}

func TestImpliedProbInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "NaN", "inf", "--100", "1e"} {
		assert.Nil(t, ImpliedProb(in), in)
	}
}

func TestDecimalConversions(t *testing.T) {
	t.Parallel()

	p, ok := DecimalToProb(2.0)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, p, 1e-9)

	_, ok = DecimalToProb(1.0)
	assert.False(t, ok)

	a, ok := DecimalToAmerican(2.5)
	assert.True(t, ok)
	assert.InDelta(t, 150, a, 1e-9)

	a, ok = DecimalToAmerican(1.5)
	assert.True(t, ok)
	assert.InDelta(t, -200, a, 1e-9)

	// both conversions agree on the implied probability
	a, _ = DecimalToAmerican(1.8)
	d, _ := DecimalToProb(1.8)
	assert.InDelta(t, d, AmericanToProb(a), 1e-3)

	_, ok = DecimalToAmerican(0.5)
	assert.False(t, ok)
}

func TestTierOdds(t *testing.T) {
	t.Parallel()

	for tier, want := range map[int]float64{1: 120, 2: 105, 3: -110, 4: -125, 5: -140} {
		got, ok := DefaultTierOdds.For(tier)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := DefaultTierOdds.For(0)
	assert.False(t, ok)
	_, ok = DefaultTierOdds.For(6)
	assert.False(t, ok)

	custom, err := NewTierOdds([]int{1, 2, 3, 4, 5})
	require.NoError(t, err)
	got, _ := custom.For(5)
	assert.Equal(t, 5.0, got)

	_, err = NewTierOdds([]int{1, 2})
	assert.Error(t, err)
}
