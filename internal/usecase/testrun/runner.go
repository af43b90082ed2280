package testrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/integration/target"
	"github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Runner exercises a project's endpoint with its latest QA set and records
// the judged answers.
type Runner struct {
	callTimeout      time.Duration
	recordUnanswered bool

	projects ProjectGetter
	qa       QASource
	results  ResultStore
	planner  Planner
	invoker  Invoker
	judge    Judge
	notifier Notifier
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewRunner(
	cfg config.MonitorConfig,
	projects ProjectGetter,
	qa QASource,
	results ResultStore,
	planner Planner,
	invoker Invoker,
	judge Judge,
	notifier Notifier,
	metrics Metrics,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		callTimeout:      cfg.CallTimeout,
		recordUnanswered: cfg.RecordUnanswered,
		projects:         projects,
		qa:               qa,
		results:          results,
		planner:          planner,
		invoker:          invoker,
		judge:            judge,
		notifier:         notifier,
		metrics:          metrics,
		logger:           logger,
		now:              time.Now,
	}
}

// run carries the mutable state of one Run call.
type run struct {
	report  *entity.RunReport
	project *entity.Project
	rows    []*entity.TestResult
}

// Run executes one test run. The returned report is never nil; its State is
// COMPLETE or FAILED. Results are written only when every pair was visited.
func (r *Runner) Run(ctx context.Context, projectID string) (*entity.RunReport, error) {
	ctx = logger.AddFields(logger.WithAction(ctx, "test_run"), zap.String("project_id", projectID))
	start := r.now()
	st := &run{report: &entity.RunReport{
		ProjectID: projectID,
		State:     entity.RunInitializing,
		StartedAt: start,
	}}

	err := r.execute(ctx, st)
	st.report.FinishedAt = r.now()
	if err != nil {
		r.transition(ctx, st, entity.RunFailed)
		ctxzap.Error(ctx, "test run failed",
			zap.String("error_kind", entity.KindOf(err).String()),
			zap.Error(err),
		)
	} else {
		r.transition(ctx, st, entity.RunComplete)
		ctxzap.Info(ctx, "test run complete",
			zap.Int("pairs", st.report.Pairs),
			zap.Int("results", st.report.Results),
			zap.Int("passed", st.report.Passed),
			zap.Int("skipped", st.report.Skipped),
			zap.Int("judge_errors", st.report.JudgeFails),
		)
	}

	r.metrics.RunFinished(string(st.report.State), st.report.FinishedAt.Sub(start))
	if st.project != nil {
		r.notifier.RunFinished(logger.Detach(ctx), st.project, st.report)
	}
	return st.report, err
}

func (r *Runner) execute(ctx context.Context, st *run) error {
	project, err := r.projects.Get(ctx, st.report.ProjectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	st.project = project

	set, err := r.qa.LatestQAPairs(ctx, project.ID)
	if errors.Is(err, entity.ErrNoQAPairs) {
		// Nothing is stored, so the project stays due until it is ingested.
		r.metrics.RunSkipped("no_qa_pairs")
		ctxzap.Debug(ctx, "no qa pairs ingested yet, nothing to test")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load qa pairs: %w", err)
	}
	st.report.Pairs = len(set.QAPairs)

	for i := range set.QAPairs {
		if err := ctx.Err(); err != nil {
			return r.abandoned(project.ID, err)
		}
		if err := r.exercise(ctx, st, &set.QAPairs[i]); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return r.abandoned(project.ID, err)
	}

	if err := r.results.SaveBatch(ctx, project.ID, st.rows, r.now()); err != nil {
		var pe *entity.PersistenceError
		if errors.As(err, &pe) {
			return err
		}
		return &entity.PersistenceError{ProjectID: project.ID, Stage: "save_results", Err: err}
	}
	st.report.Results = len(st.rows)
	return nil
}

// exercise runs plan, invoke and judge for one pair. Only errors that make
// the whole run meaningless are returned.
func (r *Runner) exercise(ctx context.Context, st *run, pair *entity.QAPair) error {
	project := st.project

	r.transition(ctx, st, entity.RunPlanning)
	body, err := r.plan(ctx, project, pair.Question)
	if err != nil {
		if entity.KindOf(err) == entity.KindValidation {
			return err
		}
		ctxzap.Warn(ctx, "payload planning failed, pair skipped", zap.Error(err))
		r.unanswered(st, pair)
		return nil
	}

	r.transition(ctx, st, entity.RunInvoking)
	answer, ok := r.invoke(ctx, project, body)
	if !ok {
		r.unanswered(st, pair)
		return nil
	}

	r.transition(ctx, st, entity.RunJudging)
	verdict := r.evaluate(ctx, pair, answer)
	row := r.newRow(project, pair, answer)
	row.HallucinationScore = verdict.Hallucination
	row.HelpfulnessScore = verdict.Helpfulness
	row.Passed = verdict.Passed()
	row.Outcome = verdict.Outcome()

	if !verdict.Complete() {
		st.report.JudgeFails++
		ctxzap.Warn(ctx, "judge call failed",
			zap.NamedError("hallucination_error", verdict.HallucinationErr),
			zap.NamedError("helpfulness_error", verdict.HelpfulnessErr),
		)
	}
	if row.Passed {
		st.report.Passed++
	}
	r.record(st, row)
	return nil
}

func (r *Runner) plan(ctx context.Context, project *entity.Project, question string) (any, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return r.planner.Plan(callCtx, project.BodyTemplate, question, project.QuestionPath)
}

func (r *Runner) invoke(ctx context.Context, project *entity.Project, body any) (string, bool) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	resp := r.invoker.Invoke(callCtx, entity.NewTargetRequest(project, body))
	if !resp.OK {
		ctxzap.Warn(ctx, "target call failed",
			zap.String("url", resp.URL),
			zap.Int("status_code", resp.StatusCode),
			zap.Int("attempts", resp.Attempts),
			zap.Error(resp.Err),
		)
		return "", false
	}

	answer, ok := target.ExtractAnswer(resp.Body)
	if !ok {
		ctxzap.Warn(ctx, "target returned no answer", zap.Int("status_code", resp.StatusCode))
	}
	return answer, ok
}

func (r *Runner) evaluate(ctx context.Context, pair *entity.QAPair, answer string) entity.Verdict {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return r.judge.Evaluate(callCtx, pair.Question, pair.Answer, answer)
}

func (r *Runner) unanswered(st *run, pair *entity.QAPair) {
	st.report.Skipped++
	if !r.recordUnanswered {
		return
	}
	row := r.newRow(st.project, pair, "")
	row.Outcome = entity.OutcomeUnanswered
	r.record(st, row)
}

func (r *Runner) record(st *run, row *entity.TestResult) {
	st.rows = append(st.rows, row)
	r.metrics.Result(string(row.Outcome))
}

func (r *Runner) newRow(project *entity.Project, pair *entity.QAPair, answer string) *entity.TestResult {
	return &entity.TestResult{
		ProjectID:       project.ID,
		OwnerID:         project.OwnerID,
		Question:        pair.Question,
		ReferenceAnswer: pair.Answer,
		TargetAnswer:    answer,
		Difficulty:      pair.Difficulty,
		CreatedAt:       r.now(),
	}
}

func (r *Runner) transition(ctx context.Context, st *run, next entity.RunState) {
	if st.report.State == next {
		return
	}
	ctxzap.Debug(ctx, "test run state",
		zap.String("from", string(st.report.State)),
		zap.String("to", string(next)),
	)
	st.report.State = next
}

func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

func (r *Runner) abandoned(projectID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &entity.TimeoutError{ProjectID: projectID, Err: err}
	}
	return fmt.Errorf("test run abandoned: %w", err)
}
