package observability

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Prometheus text exposition for the worker's series. Every type is nil-safe.

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

type family struct {
	name   string
	help   string
	kind   string
	labels []string
}

func (f family) writeHeader(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
	return err
}

// key renders a label set; missing or empty values become "unknown".
func (f family) key(values []string, extra ...string) string {
	pairs := make([]string, 0, len(f.labels)+1)
	for i, name := range f.labels {
		v := "unknown"
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		pairs = append(pairs, name+`="`+labelEscaper.Replace(v)+`"`)
	}
	if len(extra) == 2 {
		pairs = append(pairs, extra[0]+`="`+labelEscaper.Replace(extra[1])+`"`)
	}
	if len(pairs) == 0 {
		return ""
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

// floatVec keeps one float per label set.
type floatVec struct {
	family
	mu   sync.RWMutex
	vals map[string]float64
}

func newFloatVec(kind, name, help string, labels []string) *floatVec {
	return &floatVec{family: family{name: name, help: help, kind: kind, labels: labels}, vals: map[string]float64{}}
}

func (v *floatVec) update(values []string, fn func(old float64) float64) {
	k := v.key(values)
	v.mu.Lock()
	v.vals[k] = fn(v.vals[k])
	v.mu.Unlock()
}

func (v *floatVec) get(values []string) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vals[v.key(values)]
}

func (v *floatVec) write(w io.Writer) error {
	if err := v.writeHeader(w); err != nil {
		return err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.vals))
	for k := range v.vals {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", v.name, k, v.vals[k]); err != nil {
			return err
		}
	}
	return nil
}

type CounterVec struct{ vec *floatVec }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{vec: newFloatVec("counter", name, help, labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

// Add ignores negative deltas; counters only go up.
func (c *CounterVec) Add(d float64, values ...string) {
	if c == nil || d < 0 {
		return
	}
	c.vec.update(values, func(old float64) float64 { return old + d })
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.vec.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.vec.write(w)
}

// Counter is a CounterVec without labels.
type Counter struct{ vec *CounterVec }

func NewCounter(name, help string) *Counter {
	return &Counter{vec: NewCounterVec(name, help, nil)}
}

func (c *Counter) Inc() {
	if c != nil {
		c.vec.Inc()
	}
}

func (c *Counter) Value() float64 {
	if c == nil {
		return 0
	}
	return c.vec.Value()
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.vec.WritePrometheus(w)
}

type GaugeVec struct{ vec *floatVec }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{vec: newFloatVec("gauge", name, help, labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.vec.update(values, func(float64) float64 { return v })
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.vec.write(w)
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	family
	bounds []float64
	mu     sync.RWMutex
	series map[string]*histSeries
}

// histSeries stores per-bucket counts; they are made cumulative on write.
type histSeries struct {
	perBucket []uint64
	sum       float64
	count     uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	bounds := slices.Clone(buckets)
	slices.Sort(bounds)
	return &HistogramVec{
		family: family{name: name, help: help, kind: "histogram", labels: labels},
		bounds: bounds,
		series: map[string]*histSeries{},
	}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	k := h.key(values)
	idx, _ := slices.BinarySearch(h.bounds, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.series[k]
	if s == nil {
		s = &histSeries{perBucket: make([]uint64, len(h.bounds))}
		h.series[k] = s
	}
	if idx < len(h.bounds) {
		s.perBucket[idx]++
	}
	s.sum += v
	s.count++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := h.writeHeader(w); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s := h.series[k]
		values := h.labelValues(k)
		var cum uint64
		for i, b := range h.bounds {
			cum += s.perBucket[i]
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, h.key(values, "le", fmt.Sprintf("%g", b)), cum); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, h.key(values, "le", "+Inf"), s.count); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %f\n%s_count%s %d\n", h.name, k, s.sum, h.name, k, s.count); err != nil {
			return err
		}
	}
	return nil
}

// labelValues recovers the label values from a rendered key.
func (h *HistogramVec) labelValues(k string) []string {
	if k == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(k, "{"), "}"), `",`)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		_, v, _ := strings.Cut(p, `="`)
		out = append(out, strings.TrimSuffix(v, `"`))
	}
	return out
}
