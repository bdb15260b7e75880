package retrieval

import (
	"time"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/metrics"
)

// Pipeline stage names, in execution order.
const (
	StageParse     = "parse"
	StageResolve   = "resolve_access"
	StageRetrieve  = "retrieve"
	StageCombine   = "combine"
	StageRerank    = "rerank"
	StageDedup     = "dedup"
	StageFilter    = "access_filter"
	StageAggregate = "aggregate"
)

// Span records one pipeline stage for the caller's telemetry.
type Span struct {
	Stage      string  `json:"stage"`
	DurationMS float64 `json:"duration_ms"`
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Degraded   bool    `json:"degraded,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// Trace accumulates stage spans through one request. It is carried
// explicitly through the pipeline and returned in the result envelope,
// never stored in ambient state.
type Trace struct {
	spans []Span
}

// Record appends a stage span and mirrors it into Prometheus.
func (t *Trace) Record(stage string, start time.Time, in, out int, degraded bool, note string) {
	d := time.Since(start)
	t.spans = append(t.spans, Span{
		Stage:      stage,
		DurationMS: float64(d.Microseconds()) / 1000,
		In:         in,
		Out:        out,
		Degraded:   degraded,
		Note:       note,
	})
	metrics.RetrievalStageDuration.WithLabelValues(stage).Observe(d.Seconds())
	metrics.RetrievalCandidates.WithLabelValues(stage).Observe(float64(in))
}

// Spans returns the recorded stage spans in execution order.
func (t *Trace) Spans() []Span { return t.spans }

// Degraded reports whether any stage ran in degraded mode.
func (t *Trace) Degraded() bool {
	for _, s := range t.spans {
		if s.Degraded {
			return true
		}
	}
	return false
}
