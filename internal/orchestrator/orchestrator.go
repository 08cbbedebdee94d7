// Package orchestrator drives one research job from claim to terminal state.
// Each job is processed by exactly one run; the job record is the only shared
// mutable state and every stage writes its progress before the next begins.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jonathan/portfolio-research/internal/evidence"
	"github.com/jonathan/portfolio-research/internal/gather"
	"github.com/jonathan/portfolio-research/internal/identify"
	"github.com/jonathan/portfolio-research/internal/jobs"
	"github.com/jonathan/portfolio-research/internal/portfolio"
	"github.com/jonathan/portfolio-research/internal/research"
	"github.com/jonathan/portfolio-research/internal/synthesis"
)

// ErrBudgetExceeded indicates the run's wall-clock budget ran out before an
// answer could be produced.
var ErrBudgetExceeded = errors.New("run budget exceeded")

// Per-stage timeout ceilings. Each stage context is additionally bounded by
// the budget remaining when the stage starts.
const (
	identifyTimeout  = 45 * time.Second
	gatherTimeout    = 120 * time.Second
	roundTimeout     = 120 * time.Second
	synthesisTimeout = 150 * time.Second

	// minStageTime is the least remaining budget worth starting an optional
	// stage with. Below it the stage is skipped and the run moves on to
	// synthesis with whatever evidence exists.
	minStageTime = 15 * time.Second

	// synthesisReserve is the slice of the budget held back for synthesis.
	// Earlier stages never get a deadline inside it, so a slow loop cannot
	// starve the one stage that produces the answer.
	synthesisReserve = 60 * time.Second
)

// outOfTimeError is the public error for runs that exhaust their budget.
const outOfTimeError = "Research ran out of time before an answer could be produced."

// Orchestrator sequences the research stages for submitted jobs.
type Orchestrator struct {
	store      jobs.Store
	identifier *identify.Identifier
	gatherer   *gather.Gatherer
	looper     *research.Looper
	synth      *synthesis.Synthesizer
	budget     time.Duration
}

// New assembles an orchestrator from its stage implementations.
func New(store jobs.Store, identifier *identify.Identifier, gatherer *gather.Gatherer,
	looper *research.Looper, synth *synthesis.Synthesizer, budget time.Duration) *Orchestrator {
	return &Orchestrator{
		store:      store,
		identifier: identifier,
		gatherer:   gatherer,
		looper:     looper,
		synth:      synth,
		budget:     budget,
	}
}

// Run processes one pending job to a terminal state. The result is never
// returned to the caller; it is only observable by re-reading the job. Errors
// are returned only for failures before the job could be claimed; after the
// claim, every failure is converted into a FAILED record instead.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.Status != jobs.StatusPending {
		return fmt.Errorf("%w: job %s is %s, expected %s",
			jobs.ErrInvalidTransition, jobID, job.Status, jobs.StatusPending)
	}

	// Claim. Failures past this point fail the job, not the call.
	if err := o.update(ctx, jobID, jobs.StatusProcessing, "Starting research..."); err != nil {
		return fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}

	run := newRunClock(o.budget)
	log.Printf("[Orchestrator] Job %s claimed (budget %s)", jobID, o.budget)

	// Identify. Failure degrades to an unidentified company.
	o.updateSoft(ctx, jobID, jobs.StatusProcessing, "Identifying portfolio company...")
	company := o.identifyCompany(ctx, run, job.Query)

	// Gather. Source failures are absorbed into bundle notes.
	o.updateSoft(ctx, jobID, jobs.StatusProcessing, gatherMessage(company != nil))
	bundle := o.gatherEvidence(ctx, jobID, run, job.Query, company)

	// Deep research rounds, only when requested and time allows.
	if job.DeepResearch && o.looper != nil {
		o.runDeepResearch(ctx, jobID, run, bundle)
	}

	// Synthesis. The one stage with no degraded fallback.
	o.updateSoft(ctx, jobID, jobs.StatusProcessing, progressWithNotes("Synthesizing answer...", bundle))
	if run.remaining() <= 0 {
		log.Printf("[Orchestrator] Job %s: %v", jobID, ErrBudgetExceeded)
		return o.fail(ctx, jobID, outOfTimeError)
	}

	answer, err := o.synthesize(ctx, run, job.Query, bundle)
	if err != nil {
		log.Printf("[Orchestrator] Job %s: synthesis failed: %v", jobID, err)
		if errors.Is(err, ErrBudgetExceeded) {
			return o.fail(ctx, jobID, outOfTimeError)
		}
		return o.fail(ctx, jobID, "Answer synthesis failed after retries.")
	}

	return o.complete(ctx, jobID, answer)
}

// identifyCompany runs identification inside its stage window. A skipped or
// failed stage yields a nil company.
func (o *Orchestrator) identifyCompany(ctx context.Context, run *runClock, query string) *portfolio.Company {
	stageCtx, cancel, ok := run.stage(ctx, identifyTimeout)
	defer cancel()
	if !ok {
		log.Printf("[Orchestrator] Identification skipped: insufficient budget")
		return nil
	}
	return o.identifier.Company(stageCtx, query)
}

// gatherEvidence runs the fan-out stage inside its stage window. A skipped
// stage leaves a bundle holding only the static metadata.
func (o *Orchestrator) gatherEvidence(ctx context.Context, jobID string, run *runClock,
	query string, company *portfolio.Company) *evidence.Bundle {
	stageCtx, cancel, ok := run.stage(ctx, gatherTimeout)
	defer cancel()
	if !ok {
		bundle := evidence.New(query)
		bundle.Company = company
		bundle.AddNote("Information gathering skipped: run budget nearly exhausted.")
		log.Printf("[Orchestrator] Job %s: gathering skipped, %s of budget left", jobID, run.remaining())
		return bundle
	}
	return o.gatherer.Run(stageCtx, query, company)
}

// runDeepResearch executes bounded research rounds, skipping when the budget
// no longer covers a useful round. A failed gap assessment stops the loop and
// the run continues to synthesis.
func (o *Orchestrator) runDeepResearch(ctx context.Context, jobID string, run *runClock, bundle *evidence.Bundle) {
	stageCtx, cancel, ok := run.stage(ctx, roundTimeout*time.Duration(max(1, o.looper.Rounds())))
	defer cancel()
	if !ok {
		bundle.AddNote("Deep research skipped: run budget nearly exhausted.")
		log.Printf("[Orchestrator] Job %s: deep research skipped, %s of budget left", jobID, run.remaining())
		return
	}

	progress := func(round, total int) {
		o.updateSoft(ctx, jobID, jobs.StatusProcessing, fmt.Sprintf("Research round %d of %d...", round, total))
	}
	if err := o.looper.Run(stageCtx, bundle, progress); err != nil {
		log.Printf("[Orchestrator] Job %s: deep research stopped: %v", jobID, err)
	}
}

// synthesize produces the final answer within the remaining budget. When no
// company was identified and nothing external was gathered there is no
// material to synthesize from, so a short fallback reply is used instead.
func (o *Orchestrator) synthesize(ctx context.Context, run *runClock, query string, bundle *evidence.Bundle) (string, error) {
	stageCtx, cancel, ok := run.finalStage(ctx, synthesisTimeout)
	defer cancel()
	if !ok {
		return "", ErrBudgetExceeded
	}

	if bundle.Company == nil && !bundle.HasExternalEvidence() {
		if answer, err := o.identifier.FallbackAnswer(stageCtx, query); err == nil {
			return answer, nil
		}
		// Fallback generation is best effort; regular synthesis still runs.
	}

	return o.synth.Answer(stageCtx, bundle)
}

// complete writes the terminal COMPLETED state.
func (o *Orchestrator) complete(ctx context.Context, jobID, answer string) error {
	_, err := o.store.Update(ctx, jobID, jobs.Update{
		Status:  jobs.StatusOf(jobs.StatusCompleted),
		Message: jobs.StringOf("Research complete"),
		Result:  jobs.StringOf(answer),
	})
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}
	log.Printf("[Orchestrator] Job %s completed", jobID)
	return nil
}

// fail writes the terminal FAILED state with a short non-leaking description.
func (o *Orchestrator) fail(ctx context.Context, jobID, publicErr string) error {
	_, err := o.store.Update(ctx, jobID, jobs.Update{
		Status:  jobs.StatusOf(jobs.StatusFailed),
		Message: jobs.StringOf("Research failed"),
		Error:   jobs.StringOf(publicErr),
	})
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	log.Printf("[Orchestrator] Job %s failed: %s", jobID, publicErr)
	return nil
}

// update writes a status/message pair and returns any store error.
func (o *Orchestrator) update(ctx context.Context, jobID string, status jobs.Status, message string) error {
	_, err := o.store.Update(ctx, jobID, jobs.Update{
		Status:  jobs.StatusOf(status),
		Message: jobs.StringOf(message),
	})
	return err
}

// updateSoft writes progress without letting a store hiccup abort the run;
// the next write will catch the poller up.
func (o *Orchestrator) updateSoft(ctx context.Context, jobID string, status jobs.Status, message string) {
	if err := o.update(ctx, jobID, status, message); err != nil {
		log.Printf("[Orchestrator] Job %s: progress update failed: %v", jobID, err)
	}
}

func gatherMessage(identified bool) string {
	if identified {
		return "Gathering information about the company..."
	}
	return "No specific company identified, gathering general information..."
}

// progressWithNotes appends degraded-source notices to a progress message so
// pollers can see which sources went missing.
func progressWithNotes(base string, bundle *evidence.Bundle) string {
	notes := bundle.Notes()
	if len(notes) == 0 {
		return base
	}
	return base + " (" + strings.Join(notes, " ") + ")"
}

// runClock tracks the wall-clock budget of a single run. A slice of the
// budget is reserved for synthesis: pre-synthesis stages are capped and
// skipped as if that slice were already spent.
type runClock struct {
	start   time.Time
	budget  time.Duration
	reserve time.Duration
}

func newRunClock(budget time.Duration) *runClock {
	reserve := synthesisReserve
	if reserve > budget/4 {
		reserve = budget / 4
	}
	return &runClock{start: time.Now(), budget: budget, reserve: reserve}
}

// remaining returns the unspent budget, never negative.
func (r *runClock) remaining() time.Duration {
	left := r.budget - time.Since(r.start)
	if left < 0 {
		return 0
	}
	return left
}

// stage returns a context bounded by min(ceiling, remaining budget minus the
// synthesis reserve). The third return is false when too little remains to be
// worth starting the stage; callers skip the stage in that case.
func (r *runClock) stage(ctx context.Context, ceiling time.Duration) (context.Context, context.CancelFunc, bool) {
	return r.window(ctx, ceiling, r.remaining()-r.reserve)
}

// finalStage is stage without the synthesis reserve; the last stage may spend
// everything that is left.
func (r *runClock) finalStage(ctx context.Context, ceiling time.Duration) (context.Context, context.CancelFunc, bool) {
	return r.window(ctx, ceiling, r.remaining())
}

func (r *runClock) window(ctx context.Context, ceiling, left time.Duration) (context.Context, context.CancelFunc, bool) {
	if left < minStageTime {
		return ctx, func() {}, false
	}
	if ceiling > left {
		ceiling = left
	}
	stageCtx, cancel := context.WithTimeout(ctx, ceiling)
	return stageCtx, cancel, true
}
