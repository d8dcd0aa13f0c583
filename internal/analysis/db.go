package analysis

import "math"

// floorDB is reported when a window has no positive power (empty input or
// numeric underflow). Matches the device's "no signal" floor.
const floorDB = -100.0

// RMSdb computes the root-mean-square of a dB series in the power domain:
// 10*log10(mean(10^(db/10))). This is the single RMS definition used for
// sweep summaries and period fingerprints alike; arithmetic means of dB
// values are never mixed in.
func RMSdb(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, db := range values {
		sum += math.Pow(10, db/10)
	}
	mean := sum / float64(len(values))
	if mean <= 0 {
		return floorDB
	}
	return 10 * math.Log10(mean)
}

// MagnitudeDB converts a linear magnitude to dB (20*log10). Non-positive
// magnitudes map to the floor.
func MagnitudeDB(magnitude float64) float64 {
	if magnitude <= 0 {
		return -999
	}
	return 20 * math.Log10(magnitude)
}

// stddev of a plain series (population). Used for period fingerprints only;
// not an RMS.
func stddev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

func minMax(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
