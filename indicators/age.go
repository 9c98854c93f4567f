package indicators

// AgeTracker counts bars since the last trend-direction flip. The first
// observed bar has age 0; a bar whose direction differs from the previous
// bar resets the age to 0.
type AgeTracker struct {
	index    int
	lastFlip int
	prev     Direction
	started  bool
}

// Update records the direction of the next bar and returns its age.
func (a *AgeTracker) Update(d Direction) int {
	if !a.started {
		a.started = true
		a.prev = d
		return 0
	}
	a.index++
	if d != a.prev {
		a.lastFlip = a.index
	}
	a.prev = d
	return a.index - a.lastFlip
}

// Age is the age of the most recently observed bar.
func (a *AgeTracker) Age() int { return a.index - a.lastFlip }

func (a *AgeTracker) Reset() { *a = AgeTracker{} }

// TrendAges returns the trend age at every index of derived.
func TrendAges(derived []DerivedCandle) []int {
	var t AgeTracker
	ages := make([]int, len(derived))
	for i, d := range derived {
		ages[i] = t.Update(d.Direction)
	}
	return ages
}
