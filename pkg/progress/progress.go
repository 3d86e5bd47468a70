// Package progress carries one-way, best-effort progress updates out of the
// toolpath pipeline stages.
//
// Stages call a [Reporter] through a [Tracker], which collapses updates to at
// most one per whole percent. Reporters must not block: the pipeline never
// waits for a consumer, and a slow or absent consumer cannot change the
// pipeline's outcome.
package progress

// Stage names a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StageBoundary  Stage = "boundary"
	StageExtract   Stage = "extract"
	StageOptimize  Stage = "optimize"
	StageSerialize Stage = "serialize"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageBoundary, StageExtract, StageOptimize, StageSerialize}

// Reporter receives progress updates. done never exceeds total.
type Reporter interface {
	Report(stage Stage, done, total int)
}

// Func adapts a function to a Reporter.
type Func func(stage Stage, done, total int)

// Report calls f.
func (f Func) Report(stage Stage, done, total int) { f(stage, done, total) }

type nop struct{}

func (nop) Report(Stage, int, int) {}

// Nop returns a Reporter that discards every update.
func Nop() Reporter { return nop{} }

// Or returns r, or Nop when r is nil.
func Or(r Reporter) Reporter {
	if r == nil {
		return nop{}
	}
	return r
}

// Tracker throttles updates for a single stage.
type Tracker struct {
	rep     Reporter
	stage   Stage
	total   int
	percent int
}

// NewTracker starts tracking stage and reports 0 of total immediately.
func NewTracker(r Reporter, stage Stage, total int) *Tracker {
	t := &Tracker{rep: Or(r), stage: stage, total: total, percent: -1}
	t.Set(0)
	return t
}

// Set records that done units are complete, reporting only when the whole
// percentage changes.
func (t *Tracker) Set(done int) {
	if done > t.total {
		done = t.total
	}
	p := 100
	if t.total > 0 {
		p = done * 100 / t.total
	}
	if p == t.percent {
		return
	}
	t.percent = p
	t.rep.Report(t.stage, done, t.total)
}

// Done reports completion.
func (t *Tracker) Done() { t.Set(t.total) }
