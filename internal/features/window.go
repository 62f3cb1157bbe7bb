package features

import "math"

// rollingStat is a fixed-size causal window over a single group's prices:
// a ring buffer of the trailing values plus incremental sum and
// sum-of-squares, giving O(1) amortized updates. Each group owns its own
// instance, which is what enforces group isolation.
type rollingStat struct {
	window int
	buf    []float64
	head   int
	count  int
	sum    float64
	sumsq  float64
}

func newRollingStat(window int) *rollingStat {
	return &rollingStat{
		window: window,
		buf:    make([]float64, window),
	}
}

// Push appends v to the window, evicting the oldest value once full.
func (r *rollingStat) Push(v float64) {
	if r.count == r.window {
		old := r.buf[r.head]
		r.sum -= old
		r.sumsq -= old * old
	} else {
		r.count++
	}
	r.buf[r.head] = v
	r.sum += v
	r.sumsq += v * v
	r.head = (r.head + 1) % r.window
}

// Full reports whether the window holds its full row count.
func (r *rollingStat) Full() bool {
	return r.count == r.window
}

// Mean returns the window mean. Undefined until the window is full.
func (r *rollingStat) Mean() (float64, bool) {
	if !r.Full() {
		return 0, false
	}
	return r.sum / float64(r.count), true
}

// SampleStd returns the (n-1)-denominator standard deviation of the window.
// Undefined until the window is full, when fewer than 2 values exist, and
// when cancellation drives the incremental variance negative.
func (r *rollingStat) SampleStd() (float64, bool) {
	if !r.Full() || r.count < 2 {
		return 0, false
	}
	n := float64(r.count)
	variance := (r.sumsq - r.sum*r.sum/n) / (n - 1)
	if variance < 0 {
		return 0, false
	}
	return math.Sqrt(variance), true
}

// lagBuffer yields the value pushed exactly lag positions earlier.
type lagBuffer struct {
	lag   int
	buf   []float64
	head  int
	count int
}

func newLagBuffer(lag int) *lagBuffer {
	return &lagBuffer{
		lag: lag,
		buf: make([]float64, lag),
	}
}

// Push records v and returns the value lag pushes ago, or ok=false for the
// first lag pushes.
func (l *lagBuffer) Push(v float64) (lagged float64, ok bool) {
	if l.count == l.lag {
		lagged = l.buf[l.head]
		ok = true
	} else {
		l.count++
	}
	l.buf[l.head] = v
	l.head = (l.head + 1) % l.lag
	return lagged, ok
}
