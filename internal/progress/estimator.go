package progress

import "time"

// defaultWindow is the number of trailing rate samples averaged into
// the ETA.
const defaultWindow = 10

// Estimator turns progress observations into a smoothed time-remaining
// figure. Each observation records the overall rate so far (fraction
// complete per second); the estimate averages the last few samples so
// one slow file does not whipsaw the ETA.
//
// Estimator is not safe for concurrent use; the Tracker serializes
// access to it.
type Estimator struct {
	samples []float64
	next    int
	filled  bool
	start   time.Time
}

// NewEstimator creates an estimator with a trailing window of the given
// size; window <= 0 selects the default.
func NewEstimator(window int) *Estimator {
	if window <= 0 {
		window = defaultWindow
	}
	return &Estimator{samples: make([]float64, window)}
}

// Start marks the beginning of the observed work and clears any samples
// from a previous run.
func (e *Estimator) Start(now time.Time) {
	e.start = now
	e.next = 0
	e.filled = false
}

// Observe records the fraction complete (0..1) at the given time.
// Observations before Start or with no elapsed time are ignored.
func (e *Estimator) Observe(now time.Time, fraction float64) {
	if e.start.IsZero() || fraction <= 0 {
		return
	}
	elapsed := now.Sub(e.start).Seconds()
	if elapsed <= 0 {
		return
	}
	e.samples[e.next] = fraction / elapsed
	e.next++
	if e.next == len(e.samples) {
		e.next = 0
		e.filled = true
	}
}

// Remaining estimates the time left to reach fraction 1.0.
// Returns 0 when the work is done or no samples exist yet; never
// returns a negative duration.
func (e *Estimator) Remaining(fraction float64) time.Duration {
	if fraction >= 1.0 {
		return 0
	}
	n := e.next
	if e.filled {
		n = len(e.samples)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range e.samples[:n] {
		sum += r
	}
	rate := sum / float64(n)
	if rate <= 0 {
		return 0
	}
	secs := (1.0 - fraction) / rate
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs * float64(time.Second))
}
