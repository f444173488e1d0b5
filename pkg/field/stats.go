package field

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// histogramBins is the bin count used by Compare's histogram distance.
const histogramBins = 256

// BorderFraction is the share of each axis sampled by CompareBorders.
const BorderFraction = 0.18

// Summary describes the distribution of a field's values.
type Summary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stddev"`
	P05      float64 `json:"p05"`
	P50      float64 `json:"p50"`
	P95      float64 `json:"p95"`
	Contrast float64 `json:"contrast"` // (p95 - p05) / max(p50, 1/255)
}

// Summarize computes percentile and moment statistics for f.
func Summarize(f *Field) Summary {
	sorted := slices.Clone(f.Values)
	slices.Sort(sorted)

	s := Summary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
		StdDev: stat.PopStdDev(sorted, nil),
		P05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	s.Contrast = (s.P95 - s.P05) / math.Max(s.P50, 1.0/255)
	return s
}

// Metrics quantifies the difference between two equally sized fields.
type Metrics struct {
	MAE    float64 `json:"mae"`
	RMSE   float64 `json:"rmse"`
	HistL1 float64 `json:"hist_l1"`
}

// Compare measures how far current has drifted from baseline.
func Compare(baseline, current *Field) (Metrics, error) {
	if baseline.Width != current.Width || baseline.Height != current.Height {
		return Metrics{}, fmt.Errorf("shape mismatch %dx%d vs %dx%d",
			baseline.Width, baseline.Height, current.Width, current.Height)
	}
	return compareValues(baseline.Values, current.Values), nil
}

// CompareBorders runs Compare on the top, bottom, left and right strips,
// each BorderFraction of the field deep.
func CompareBorders(baseline, current *Field) (map[string]Metrics, error) {
	if baseline.Width != current.Width || baseline.Height != current.Height {
		return nil, fmt.Errorf("shape mismatch %dx%d vs %dx%d",
			baseline.Width, baseline.Height, current.Width, current.Height)
	}
	w, h := baseline.Width, baseline.Height
	bx := max(1, int(float64(w)*BorderFraction))
	by := max(1, int(float64(h)*BorderFraction))

	strips := map[string][4]int{
		"top":    {0, 0, w, by},
		"bottom": {0, h - by, w, by},
		"left":   {0, 0, bx, h},
		"right":  {w - bx, 0, bx, h},
	}
	out := make(map[string]Metrics, len(strips))
	for name, r := range strips {
		out[name] = compareValues(
			baseline.Region(r[0], r[1], r[2], r[3]),
			current.Region(r[0], r[1], r[2], r[3]),
		)
	}
	return out, nil
}

func compareValues(a, b []float64) Metrics {
	if len(a) == 0 {
		return Metrics{}
	}
	var absSum, sqSum float64
	for i := range a {
		d := b[i] - a[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(a))

	ha, hb := histogram(a), histogram(b)
	l1 := 0.0
	for i := range ha {
		l1 += math.Abs(ha[i] - hb[i])
	}

	return Metrics{
		MAE:    absSum / n,
		RMSE:   math.Sqrt(sqSum / n),
		HistL1: l1 / histogramBins,
	}
}

// histogram returns a density histogram over [0, 1] with histogramBins bins.
func histogram(values []float64) []float64 {
	x := make([]float64, len(values))
	for i, v := range values {
		x[i] = Clamp01(v)
	}
	slices.Sort(x)

	dividers := make([]float64, histogramBins+1)
	for i := range dividers {
		dividers[i] = float64(i) / histogramBins
	}
	// Histogram requires every value strictly below the last divider.
	dividers[histogramBins] = math.Nextafter(1, 2)

	counts := stat.Histogram(nil, dividers, x, nil)
	scale := float64(histogramBins) / float64(len(x))
	for i := range counts {
		counts[i] *= scale
	}
	return counts
}
