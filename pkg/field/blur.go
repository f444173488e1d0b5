package field

// BoxBlur applies one 3x3 weighted average (1-2-1 kernel) to the interior of
// f. Border pixels are read but never written, so fields of MinSize pass
// through unchanged.
func BoxBlur(f *Field) {
	if f.Width < 3 || f.Height < 3 {
		return
	}
	src := make([]float64, len(f.Values))
	copy(src, f.Values)

	w := f.Width
	for y := 1; y < f.Height-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			up, down := i-w, i+w
			sum := src[up-1] + 2*src[up] + src[up+1] +
				2*src[i-1] + 4*src[i] + 2*src[i+1] +
				src[down-1] + 2*src[down] + src[down+1]
			f.Values[i] = sum / 16
		}
	}
}
