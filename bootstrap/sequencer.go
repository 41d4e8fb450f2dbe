package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"launchseq/host"
	"launchseq/metrics"
	"launchseq/util/goroutine"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// DefaultStepTimeout bounds each step when no timeout is configured.
const DefaultStepTimeout = 5 * time.Second

// Action is the work performed by a step.
type Action func(ctx context.Context, lc *host.LaunchContext) error

// Step is one named, ordered unit of startup work.
type Step struct {
	Name      string
	Mandatory bool
	Action    Action
}

// Status is the terminal classification of a bootstrap run.
type Status string

const (
	StatusReady  Status = "ready"
	StatusFailed Status = "failed"
)

// StepReport describes one executed step.
type StepReport struct {
	Name      string
	Mandatory bool
	Duration  time.Duration
	Err       error
}

// Result is the outcome of Sequencer.Run.
type Result struct {
	Status Status
	// Err is set when Status is StatusFailed. It wraps ErrInvalidContext or
	// is a *StepError for the failing mandatory step.
	Err error
	// NonFatal holds failures of non-mandatory steps, in run order.
	NonFatal []*StepError
	// Steps lists the executed steps in run order.
	Steps    []StepReport
	Duration time.Duration
}

// Ready reports whether the application may proceed.
func (r Result) Ready() bool { return r.Status == StatusReady }

// FailedStep names the mandatory step that aborted the run, if any.
func (r Result) FailedStep() string {
	var stepErr *StepError
	if errors.As(r.Err, &stepErr) {
		return stepErr.Step
	}
	return ""
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Sequencer) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithStepTimeout sets the per-step time budget. Non-positive values keep
// DefaultStepTimeout.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithContextCheck adds a validation applied to the launch context before
// any step runs. A failing check makes Run fail with ErrInvalidContext.
func WithContextCheck(check func(lc *host.LaunchContext) error) Option {
	return func(s *Sequencer) {
		if check != nil {
			s.checks = append(s.checks, check)
		}
	}
}

// Sequencer runs a fixed list of steps, in order, at most once.
type Sequencer struct {
	steps   []Step
	logger  *zap.SugaredLogger
	tracer  trace.Tracer
	timeout time.Duration
	checks  []func(lc *host.LaunchContext) error

	once   sync.Once
	result Result
}

// NewSequencer validates and freezes the step list.
func NewSequencer(steps []Step, opts ...Option) (*Sequencer, error) {
	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("%w: step %d has no name", ErrInvalidStep, i)
		}
		if step.Action == nil {
			return nil, fmt.Errorf("%w: step %q has no action", ErrInvalidStep, step.Name)
		}
		if _, dup := seen[step.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate step %q", ErrInvalidStep, step.Name)
		}
		seen[step.Name] = struct{}{}
	}

	s := &Sequencer{
		steps:   append([]Step(nil), steps...),
		logger:  zap.NewNop().Sugar(),
		tracer:  noop.NewTracerProvider().Tracer("launchseq/bootstrap"),
		timeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Steps returns a copy of the declared steps.
func (s *Sequencer) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// Run executes the steps against lc. An invalid lc is always rejected with
// ErrInvalidContext and does not count as the run. Only the first call with a
// valid lc does any work; later calls return that result unchanged.
func (s *Sequencer) Run(ctx context.Context, lc *host.LaunchContext) Result {
	start := time.Now()
	if err := s.validate(lc); err != nil {
		s.logger.Errorw("Rejecting launch context", "error", err)
		metrics.LaunchOutcomes.WithLabelValues(string(StatusFailed)).Inc()
		return Result{
			Status:   StatusFailed,
			Err:      fmt.Errorf("%w: %v", ErrInvalidContext, err),
			Duration: time.Since(start),
		}
	}

	s.once.Do(func() {
		s.result = s.run(ctx, lc)
		metrics.LaunchOutcomes.WithLabelValues(string(s.result.Status)).Inc()
	})
	return s.result
}

func (s *Sequencer) run(ctx context.Context, lc *host.LaunchContext) Result {
	start := time.Now()

	s.logger.Infow("Bootstrap starting",
		"launch_id", lc.LaunchID,
		"steps", len(s.steps),
		"step_timeout", s.timeout)

	result := Result{Status: StatusReady}
	for _, step := range s.steps {
		report := s.execute(ctx, step, lc)
		result.Steps = append(result.Steps, report)

		if report.Err == nil {
			continue
		}

		// A timed-out action may still be running, so no later step may start.
		fatal := step.Mandatory || errors.Is(report.Err, ErrStepTimeout)
		stepErr := &StepError{Step: step.Name, Mandatory: fatal, Err: report.Err}
		if fatal {
			s.logger.Errorw("Bootstrap step failed, aborting launch",
				"step", step.Name,
				"mandatory", step.Mandatory,
				"error", report.Err)
			result.Status = StatusFailed
			result.Err = stepErr
			break
		}

		s.logger.Warnw("Bootstrap step failed, continuing",
			"step", step.Name,
			"error", report.Err)
		result.NonFatal = append(result.NonFatal, stepErr)
	}

	result.Duration = time.Since(start)
	s.logger.Infow("Bootstrap finished",
		"launch_id", lc.LaunchID,
		"status", string(result.Status),
		"non_fatal_failures", len(result.NonFatal),
		"duration", result.Duration)
	return result
}

func (s *Sequencer) validate(lc *host.LaunchContext) error {
	if err := lc.Validate(); err != nil {
		return err
	}
	for _, check := range s.checks {
		if err := check(lc); err != nil {
			return err
		}
	}
	return nil
}

// execute runs one step under its time budget and records telemetry.
func (s *Sequencer) execute(ctx context.Context, step Step, lc *host.LaunchContext) StepReport {
	ctx, span := s.tracer.Start(ctx, "bootstrap.step/"+step.Name,
		trace.WithAttributes(
			attribute.String("launch.id", lc.LaunchID),
			attribute.Bool("step.mandatory", step.Mandatory),
		))
	defer span.End()

	s.logger.Debugw("Running bootstrap step", "step", step.Name, "mandatory", step.Mandatory)

	start := time.Now()
	err := s.invoke(ctx, step, lc)
	elapsed := time.Since(start)

	metrics.StepDuration.WithLabelValues(step.Name).Observe(elapsed.Seconds())
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailed
		if !step.Mandatory && !errors.Is(err, ErrStepTimeout) {
			outcome = metrics.OutcomeNonFatal
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		s.logger.Infow("Bootstrap step completed", "step", step.Name, "duration", elapsed)
	}
	metrics.StepOutcomes.WithLabelValues(step.Name, outcome).Inc()

	return StepReport{
		Name:      step.Name,
		Mandatory: step.Mandatory,
		Duration:  elapsed,
		Err:       err,
	}
}

// invoke runs the action on a watchdog goroutine so a step that ignores its
// context still cannot hold the launch past the time budget. The sequence
// itself stays sequential: invoke returns before the next step starts.
func (s *Sequencer) invoke(ctx context.Context, step Step, lc *host.LaunchContext) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- goroutine.Capture("bootstrap-step:"+step.Name, s.logger, func() error {
			return step.Action(ctx, lc)
		})
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w (%s): %v", ErrStepTimeout, s.timeout, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w (%s)", ErrStepTimeout, s.timeout)
		}
		return ctx.Err()
	}
}
