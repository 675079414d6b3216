package scoring

import "sort"

// Eddington returns the largest E such that at least E activities each
// covered at least E kilometers.
func Eddington(distancesKm []float64) int {
	if len(distancesKm) == 0 {
		return 0
	}

	sorted := make([]float64, len(distancesKm))
	copy(sorted, distancesKm)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	for i, dist := range sorted {
		if dist < float64(i+1) {
			return i
		}
	}
	return len(sorted)
}

// EddingtonProgress describes how far an athlete is from the next Eddington
// level.
type EddingtonProgress struct {
	Number int
	// NextTarget is Number+1, the distance and count of the next level.
	NextTarget int
	// RidesMissing is how many more rides of at least NextTarget kilometers
	// are needed to reach it.
	RidesMissing int
}

// Progress computes the Eddington number together with the distance to the
// next level.
func Progress(distancesKm []float64) EddingtonProgress {
	number := Eddington(distancesKm)
	next := number + 1

	have := 0
	for _, dist := range distancesKm {
		if dist >= float64(next) {
			have++
		}
	}
	return EddingtonProgress{
		Number:       number,
		NextTarget:   next,
		RidesMissing: next - have,
	}
}
