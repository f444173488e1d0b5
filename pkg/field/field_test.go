package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsDegenerateSizes(t *testing.T) {
	for _, size := range [][2]int{{0, 4}, {4, 0}, {1, 1}, {1, 8}, {8, 1}} {
		assert.Panics(t, func() { New(size[0], size[1]) }, "%dx%d", size[0], size[1])
	}
	assert.NotPanics(t, func() { New(2, 2) })
}

func TestClampAndNormalize(t *testing.T) {
	f := FromValues(2, 2, []float64{-0.5, 0.25, 1.75, math.NaN()})
	f.Clamp()
	assert.Equal(t, []float64{0, 0.25, 1, 0}, f.Values)

	g := FromValues(2, 2, []float64{2, 4, 6, 10})
	g.Normalize()
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 1}, g.Values, 1e-12)

	flat := FromValues(2, 2, []float64{0.4, 0.4, 0.4, 0.4})
	flat.Normalize()
	assert.Equal(t, []float64{0.4, 0.4, 0.4, 0.4}, flat.Values)
}

func TestBoxBlurMinimumSize(t *testing.T) {
	f := FromValues(2, 2, []float64{0, 1, 1, 0})
	before := f.Clone()
	require.NotPanics(t, func() { BoxBlur(f) })
	assert.True(t, before.Equal(f), "2x2 field has no interior and must be unchanged")
}

func TestBoxBlurInteriorOnly(t *testing.T) {
	f := New(5, 4)
	f.Fill(func(x, y int) float64 {
		if x == 2 && y == 1 {
			return 1
		}
		return 0
	})
	before := f.Clone()
	BoxBlur(f)

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if x == 0 || y == 0 || x == f.Width-1 || y == f.Height-1 {
				assert.Equal(t, before.At(x, y), f.At(x, y), "border pixel (%d,%d) changed", x, y)
			}
		}
	}
	assert.InDelta(t, 4.0/16, f.At(2, 1), 1e-12)
	assert.InDelta(t, 2.0/16, f.At(1, 1), 1e-12)
	assert.InDelta(t, 1.0/16, f.At(1, 2), 1e-12)
}

func TestBoxBlurPreservesConstant(t *testing.T) {
	f := New(8, 8)
	f.Fill(func(int, int) float64 { return 0.6 })
	BoxBlur(f)
	for _, v := range f.Values {
		assert.InDelta(t, 0.6, v, 1e-12)
	}
}

func TestMeanClipsToBounds(t *testing.T) {
	f := New(4, 4)
	f.Fill(func(x, y int) float64 { return float64(x) })
	assert.InDelta(t, 1.5, f.Mean(0, 0, 4, 4), 1e-12)
	assert.InDelta(t, 3.0, f.Mean(3, 0, 10, 10), 1e-12)
	assert.Equal(t, 0.0, f.Mean(10, 10, 2, 2))
}

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(0, 1, -1))
	assert.Equal(t, 1.0, Smoothstep(0, 1, 2))
	assert.InDelta(t, 0.5, Smoothstep(0, 1, 0.5), 1e-12)
	assert.Equal(t, 1.0, Smoothstep(0.3, 0.3, 0.3))
}

func TestSummarize(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i) / 100
	}
	s := Summarize(FromValues(101, 2, append(values, values...)))
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.InDelta(t, 0.5, s.Mean, 1e-12)
	assert.InDelta(t, 0.5, s.P50, 0.011)
	assert.Greater(t, s.P95, s.P05)
	assert.Greater(t, s.Contrast, 1.0)
}

func TestCompare(t *testing.T) {
	a := New(8, 8)
	a.Fill(func(x, y int) float64 { return float64(x) / 7 })

	same, err := Compare(a, a.Clone())
	require.NoError(t, err)
	assert.Equal(t, Metrics{}, same)

	b := a.Clone()
	b.Apply(func(v float64) float64 { return Clamp01(v + 0.1) })
	m, err := Compare(a, b)
	require.NoError(t, err)
	assert.Greater(t, m.MAE, 0.0)
	assert.GreaterOrEqual(t, m.RMSE, m.MAE)
	assert.Greater(t, m.HistL1, 0.0)

	_, err = Compare(a, New(4, 4))
	assert.Error(t, err)
}

func TestCompareBorders(t *testing.T) {
	a := New(20, 20)
	b := a.Clone()
	b.Set(10, 10, 1) // interior only

	borders, err := CompareBorders(a, b)
	require.NoError(t, err)
	require.Len(t, borders, 4)
	for name, m := range borders {
		assert.Equal(t, Metrics{}, m, name)
	}

	b.Set(0, 0, 1)
	borders, err = CompareBorders(a, b)
	require.NoError(t, err)
	assert.Greater(t, borders["top"].MAE, 0.0)
	assert.Greater(t, borders["left"].MAE, 0.0)
	assert.Equal(t, 0.0, borders["bottom"].MAE)
}
