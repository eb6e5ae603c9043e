// Package timings provides a nestable named timer for recording the
// duration of query-build phases. A Timings value accumulates wall-clock
// seconds under hierarchical keys: measuring "parse" inside "compile"
// records under "./compile/parse". It never touches the expressions being
// compiled; it only observes time.
package timings

import "time"

// Timings records named, nestable phase durations. Create one per compile
// or query-build call with New. Not safe for concurrent use.
type Timings struct {
	start     time.Time
	pointer   string
	durations map[string]float64
}

// New returns a Timings anchored at the current time.
func New() *Timings {
	return &Timings{
		start:     time.Now(),
		pointer:   ".",
		durations: make(map[string]float64),
	}
}

// Measure starts timing the named phase and returns a function that stops
// it. Phases nest: measures started before stop is called record under the
// current phase's key. Repeated measurements of the same key accumulate.
//
//	stop := t.Measure("compile_filters")
//	defer stop()
func (t *Timings) Measure(name string) (stop func()) {
	key := t.pointer + "/" + name
	parent := t.pointer
	t.pointer = key
	begin := time.Now()
	return func() {
		t.pointer = parent
		t.durations[key] += time.Since(begin).Seconds()
	}
}

// ToMap returns the recorded durations in seconds keyed by phase path,
// plus "./total" holding the time elapsed since New.
func (t *Timings) ToMap() map[string]float64 {
	out := make(map[string]float64, len(t.durations)+1)
	for key, seconds := range t.durations {
		out[key] = seconds
	}
	out["./total"] = time.Since(t.start).Seconds()
	return out
}
