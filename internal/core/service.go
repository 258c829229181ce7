package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
	"github.com/JonMunkholm/tollbatch/internal/logging"
	"github.com/JonMunkholm/tollbatch/internal/retry"
)

// DefaultRunTimeout bounds a run when no timeout is configured.
var DefaultRunTimeout = 2 * time.Hour

// DefaultResultRetention is how long a finished run stays downloadable.
var DefaultResultRetention = time.Hour

// historyTimeout bounds the write of a run summary.
const historyTimeout = 5 * time.Second

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	MaxFileSize     int64
	Encoding        string
	RunTimeout      time.Duration
	ResultRetention time.Duration
	Retry           retry.Policy
}

// Service runs the bulk pipeline: it validates uploaded files and prices
// valid ones in the background, one run per file.
type Service struct {
	cfg     ServiceConfig
	lookup  LookupFunc
	limiter *RunLimiter
	history HistoryStore

	mu   sync.RWMutex
	runs map[string]*activeRun
	wg   sync.WaitGroup
}

type activeRun struct {
	ID        string
	FileName  string
	ClientIP  string
	StartedAt time.Time
	Cancel    context.CancelFunc
	Done      chan struct{}

	mu        sync.Mutex
	progress  RunProgress
	result    *RunResult
	listeners []chan RunProgress
	behind    map[chan RunProgress]bool
	finished  bool
}

// Prepared is an uploaded file that has been decoded and validated.
type Prepared struct {
	FileName string
	Table    csvcodec.Table
	Report   ValidationReport

	// ErrorReport is the annotated table when rows failed validation.
	// It is nil for a valid file and for a header failure.
	ErrorReport csvcodec.Table
}

// NewService creates a Service. history may be nil, in which case runs are
// not persisted and History returns ErrHistoryDisabled.
func NewService(lookup LookupFunc, limiter *RunLimiter, history HistoryStore, cfg ServiceConfig) *Service {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.ResultRetention <= 0 {
		cfg.ResultRetention = DefaultResultRetention
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default
	}
	if limiter == nil {
		limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultRunSlotWait)
	}
	return &Service{
		cfg:     cfg,
		lookup:  lookup,
		limiter: limiter,
		history: history,
		runs:    make(map[string]*activeRun),
	}
}

// Prepare decodes and validates an uploaded file. encoding overrides the
// configured input encoding when non-empty.
//
// A returned error means the file itself was unusable. Validation failures
// are reported through Prepared.Report instead.
func (s *Service) Prepare(r io.Reader, name, encoding string) (*Prepared, error) {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".csv") {
		return nil, ErrNotCSV
	}
	if encoding == "" {
		encoding = s.cfg.Encoding
	}

	table, err := csvcodec.ReadTable(r, csvcodec.ReadOptions{
		Encoding: encoding,
		MaxSize:  s.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	p := &Prepared{
		FileName: name,
		Table:    table,
		Report:   Validate(table),
	}

	switch {
	case len(p.Report.HeaderErrors) > 0:
	case !p.Report.Valid:
		p.ErrorReport = BuildErrorReport(table, p.Report)
	case table.DataRowCount() == 0:
		return nil, ErrNoDataRows
	}

	return p, nil
}

// StartRun begins processing a valid prepared file in the background and
// returns the run id. It waits for a free run slot and fails with
// ErrTooManyRuns when none frees up in time.
func (s *Service) StartRun(ctx context.Context, p *Prepared) (string, error) {
	if err := p.Report.Err(); err != nil {
		return "", err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", fmt.Errorf("acquire run slot: %w", err)
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)

	run := &activeRun{
		ID:        runID,
		FileName:  p.FileName,
		ClientIP:  ClientIPFromContext(ctx),
		StartedAt: time.Now(),
		Cancel:    cancel,
		Done:      make(chan struct{}),
		progress: RunProgress{
			RunID:    runID,
			FileName: p.FileName,
			Phase:    PhaseQueued,
			Total:    p.Table.DataRowCount(),
		},
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	logger := logging.WithFields(ctx, "run_id", runID, "rows", run.progress.Total)
	logger.Info("bulk run started", "file", p.FileName)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.limiter.Release()
		defer cancel()
		s.process(runCtx, run, p.Table, logger)
	}()

	return runID, nil
}

// RunSync processes a valid prepared file on the calling goroutine.
func (s *Service) RunSync(ctx context.Context, p *Prepared, progress ProgressFunc) (*RunResult, error) {
	if err := p.Report.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, outcomes, err := NewProcessor(s.lookup, s.cfg.Retry, slog.Default()).
		Process(ctx, p.Table, progress)

	res := newRunResult("", p.FileName, p.Table.DataRowCount(), out, outcomes, err)
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Service) process(ctx context.Context, run *activeRun, table csvcodec.Table, logger *slog.Logger) {
	defer func() {
		run.closeListeners()
		close(run.Done)
		s.cleanup(run.ID, s.cfg.ResultRetention)
	}()

	run.update(func(p *RunProgress) { p.Phase = PhaseProcessing })

	proc := NewProcessor(s.lookup, s.cfg.Retry, logger).OnRow(func(o RowOutcome) {
		run.update(func(p *RunProgress) {
			if o.Status == StatusSuccess {
				p.Succeeded++
			} else {
				p.Failed++
			}
		})
	})

	out, outcomes, err := proc.Process(ctx, table, func(current, total int) {
		run.update(func(p *RunProgress) {
			p.Current = current
			p.Total = total
		})
	})

	res := newRunResult(run.ID, run.FileName, table.DataRowCount(), out, outcomes, err)
	res.Duration = time.Since(run.StartedAt)

	run.mu.Lock()
	run.result = res
	run.mu.Unlock()
	run.update(func(p *RunProgress) {
		p.Phase = res.Phase
		p.Error = res.Error
	})

	logger.Info("bulk run finished",
		"phase", res.Phase,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", res.Duration,
	)

	s.recordHistory(run, res, logger)
}

func newRunResult(runID, fileName string, rows int, out csvcodec.Table, outcomes []RowOutcome, err error) *RunResult {
	res := &RunResult{
		RunID:     runID,
		FileName:  fileName,
		Phase:     PhaseComplete,
		Output:    out,
		Rows:      rows,
		Processed: len(outcomes),
	}
	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		res.Phase = PhaseCancelled
		res.Error = ErrRunCancelled.Error()
	default:
		res.Phase = PhaseFailed
		res.Error = err.Error()
	}
	return res
}

func (s *Service) recordHistory(run *activeRun, res *RunResult, logger *slog.Logger) {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	err := s.history.RecordRun(ctx, RunSummary{
		RunID:      run.ID,
		FileName:   run.FileName,
		Status:     res.Phase,
		Rows:       res.Rows,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
		Duration:   res.Duration,
		ClientIP:   run.ClientIP,
		Error:      res.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.StartedAt.Add(res.Duration),
	})
	if err != nil {
		logger.Warn("failed to record run history", "error", err)
	}
}

func (s *Service) get(runID string) (*activeRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// SubscribeProgress returns a channel of progress updates for a run.
// The current state is sent first; the channel is closed when the run ends.
// Slow subscribers miss intermediate updates rather than stalling the run,
// but always receive the final state.
func (s *Service) SubscribeProgress(runID string) (<-chan RunProgress, error) {
	run, err := s.get(runID)
	if err != nil {
		return nil, err
	}

	ch := make(chan RunProgress, 16)

	run.mu.Lock()
	defer run.mu.Unlock()

	ch <- run.progress
	if run.finished {
		close(ch)
	} else {
		run.listeners = append(run.listeners, ch)
	}

	return ch, nil
}

// RunProgress returns the current progress of a run without blocking.
func (s *Service) RunProgress(runID string) (RunProgress, error) {
	run, err := s.get(runID)
	if err != nil {
		return RunProgress{}, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.progress, nil
}

// CancelRun stops a run before its next row. Rows already priced are kept.
func (s *Service) CancelRun(runID string) error {
	run, err := s.get(runID)
	if err != nil {
		return err
	}
	run.Cancel()
	return nil
}

// RunResult waits for a run to finish and returns its result.
func (s *Service) RunResult(ctx context.Context, runID string) (*RunResult, error) {
	run, err := s.get(runID)
	if err != nil {
		return nil, err
	}

	select {
	case <-run.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.result, nil
}

// FinishedResult returns the result of a run that has already finished, or
// ErrRunNotFinished.
func (s *Service) FinishedResult(runID string) (*RunResult, error) {
	run, err := s.get(runID)
	if err != nil {
		return nil, err
	}

	select {
	case <-run.Done:
	default:
		return nil, ErrRunNotFinished
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.result, nil
}

// ExportRun hands the results file of a finished run to sink.
func (s *Service) ExportRun(runID string, sink DownloadSink) error {
	res, err := s.FinishedResult(runID)
	if err != nil {
		return err
	}
	return ExportResults(sink, res.Output)
}

// History lists recently finished runs.
func (s *Service) History(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.RecentRuns(ctx, limit)
}

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until every run has finished or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelAll cancels every run still in progress.
func (s *Service) CancelAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, run := range s.runs {
		run.Cancel()
	}
}

// update applies fn to the progress under the run lock and notifies
// listeners.
func (run *activeRun) update(fn func(*RunProgress)) {
	run.mu.Lock()
	defer run.mu.Unlock()

	fn(&run.progress)
	for _, ch := range run.listeners {
		select {
		case ch <- run.progress:
		default:
			// listener is slow, skip this update
			if run.behind == nil {
				run.behind = make(map[chan RunProgress]bool)
			}
			run.behind[ch] = true
		}
	}
}

func (run *activeRun) closeListeners() {
	run.mu.Lock()
	defer run.mu.Unlock()

	// A listener that missed an update gets the final state again, displacing
	// its oldest pending update if the buffer is full.
	for _, ch := range run.listeners {
		if run.behind[ch] {
			select {
			case ch <- run.progress:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- run.progress
			}
		}
		close(ch)
	}
	run.listeners = nil
	run.behind = nil
	run.finished = true
}

// cleanup forgets the run after delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}
