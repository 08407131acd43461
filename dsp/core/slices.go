package core

// Peak returns the largest absolute value in buf.
func Peak(buf []float64) float64 {
	peak := 0.0
	for _, v := range buf {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
