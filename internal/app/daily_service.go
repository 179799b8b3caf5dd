package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/telemetry"
	"github.com/jsamuelsen/esoteric-daily/internal/ports"
)

const tracerName = "github.com/jsamuelsen/esoteric-daily/app"

// ErrServiceClosed is returned by Initialize once Close has begun.
var ErrServiceClosed = errors.New("daily service closed")

// Provider operations, used for metrics, spans and error context.
const (
	opGenerate   = "generate"
	opExplain    = "explain"
	opIllustrate = "illustrate"
)

// Phase is the lifecycle of the base content for one date.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseBaseLoading   Phase = "base_loading"
	PhaseBaseReady     Phase = "base_ready"
	PhaseFailed        Phase = "failed"
)

// FieldStatus is the lifecycle of one derived field.
type FieldStatus string

const (
	FieldIdle        FieldStatus = "idle"
	FieldLoading     FieldStatus = "loading"
	FieldReady       FieldStatus = "ready"
	FieldFailed      FieldStatus = "failed"
	FieldUnavailable FieldStatus = "unavailable"
)

// Snapshot is a consistent view of one date's workflow state.
type Snapshot struct {
	Date              string
	Phase             Phase
	Record            *domain.DailyRecord
	Explanation       FieldStatus
	Illustration      FieldStatus
	BaseError         string
	ExplanationError  string
	IllustrationError string
}

type session struct {
	mu              sync.Mutex
	date            string
	phase           Phase
	record          *domain.DailyRecord
	explanation     FieldStatus
	illustration    FieldStatus
	baseErr         error
	explanationErr  error
	illustrationErr error
}

func newSession(date string) *session {
	return &session{
		date:         date,
		phase:        PhaseUninitialized,
		explanation:  FieldIdle,
		illustration: FieldIdle,
	}
}

// adopt installs rec as the base content. Caller holds mu.
func (s *session) adopt(rec *domain.DailyRecord) {
	s.phase = PhaseBaseReady
	s.record = rec
	s.baseErr = nil

	if rec.HasExplanation() {
		s.explanation = FieldReady
	}

	if rec.HasImage() {
		s.illustration = FieldReady
	}
}

// snapshot copies the state. Caller holds mu.
func (s *session) snapshot() *Snapshot {
	return &Snapshot{
		Date:              s.date,
		Phase:             s.phase,
		Record:            s.record.Clone(),
		Explanation:       s.explanation,
		Illustration:      s.illustration,
		BaseError:         errString(s.baseErr),
		ExplanationError:  errString(s.explanationErr),
		IllustrationError: errString(s.illustrationErr),
	}
}

func (s *session) lockedSnapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// derivedInput carries what a derived-field fetch needs, captured under the
// session lock so the fetch itself runs unlocked.
type derivedInput struct {
	date   string
	record *domain.DailyRecord
}

// DailyServiceConfig holds dependencies for DailyService.
type DailyServiceConfig struct {
	Cache     *DailyCache
	Providers ports.Providers
	Tasks     *TaskRunner
	Events    ports.EventPublisher
	Recorder  Recorder
	Logger    *slog.Logger
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Location decides which calendar date is today. Defaults to time.Local.
	Location *time.Location
	// HistoryConcurrency bounds parallel cache reads in History and Prune.
	HistoryConcurrency int
	// BaseTimeout bounds the shared wisdom fetch. Defaults to DefaultTaskTimeout.
	BaseTimeout time.Duration
}

// DailyService drives the daily content workflow: base content on first
// visit, explanation on demand, illustration in the background after
// creation or on demand. All results are merged into the DailyCache.
type DailyService struct {
	cache       *DailyCache
	providers   ports.Providers
	tasks       *TaskRunner
	events      ports.EventPublisher
	recorder    Recorder
	logger      *slog.Logger
	exec        *Executor
	tracer      trace.Tracer
	clock       func() time.Time
	loc         *time.Location
	concurrency int

	inflight    singleflight.Group
	baseTimeout time.Duration
	flights     sync.WaitGroup
	done        context.Context
	stop        context.CancelFunc

	mu       sync.Mutex
	closed   bool
	sessions map[string]*session
}

// NewDailyService creates the workflow. It panics if the cache or any
// provider is missing.
func NewDailyService(cfg DailyServiceConfig) *DailyService {
	if cfg.Cache == nil {
		panic("app: DailyService requires a cache")
	}

	if cfg.Providers.Wisdom == nil || cfg.Providers.Explanation == nil || cfg.Providers.Illustration == nil {
		panic("app: DailyService requires wisdom, explanation and illustration providers")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}

	if cfg.Tasks == nil {
		cfg.Tasks = NewTaskRunner(TaskRunnerConfig{Logger: cfg.Logger, Recorder: cfg.Recorder})
	}

	if cfg.Events == nil {
		cfg.Events = ports.NopPublisher{}
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	if cfg.HistoryConcurrency < 1 {
		cfg.HistoryConcurrency = 4
	}

	if cfg.BaseTimeout <= 0 {
		cfg.BaseTimeout = DefaultTaskTimeout
	}

	logger := cfg.Logger.With(slog.String("component", "daily_service"))
	done, stop := context.WithCancel(context.Background())

	return &DailyService{
		cache:       cfg.Cache,
		providers:   cfg.Providers,
		tasks:       cfg.Tasks,
		events:      cfg.Events,
		recorder:    cfg.Recorder,
		logger:      logger,
		exec:        NewExecutor(logger),
		tracer:      telemetry.Tracer(tracerName),
		clock:       cfg.Clock,
		loc:         cfg.Location,
		concurrency: cfg.HistoryConcurrency,
		baseTimeout: cfg.BaseTimeout,
		done:        done,
		stop:        stop,
		sessions:    make(map[string]*session),
	}
}

// CurrentDate returns today's date key in the configured location.
func (s *DailyService) CurrentDate() string {
	return domain.DateKey(s.clock().In(s.loc))
}

// Today initializes the workflow for the current date.
func (s *DailyService) Today(ctx context.Context) (*Snapshot, error) {
	return s.Initialize(ctx, s.CurrentDate())
}

// Initialize makes the base content for date available. A cached record is
// used as-is with no provider calls. Otherwise the wisdom provider is called
// once (concurrent callers share the call), the record is stored, and an
// illustration fetch is started in the background. A failed fetch leaves the
// date in PhaseFailed until Initialize is called again.
//
// The shared fetch does not run on ctx. A caller whose ctx ends stops
// waiting and gets ctx's error; the fetch carries on for the others.
func (s *DailyService) Initialize(ctx context.Context, date string) (*Snapshot, error) {
	date, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithDate(ctx, date)
	sess := s.session(date)

	sess.mu.Lock()
	if sess.phase == PhaseBaseReady {
		snap := sess.snapshot()
		sess.mu.Unlock()

		return snap, nil
	}
	sess.mu.Unlock()

	flight := s.inflight.DoChan(date, func() (any, error) {
		return nil, s.fetchBase(ctx, sess)
	})

	select {
	case res := <-flight:
		return sess.lockedSnapshot(), res.Err
	case <-ctx.Done():
		return sess.lockedSnapshot(), ctx.Err()
	}
}

// fetchBase runs loadBase with the values of ctx but not its cancellation,
// bounded by the base timeout and by Close.
func (s *DailyService) fetchBase(ctx context.Context, sess *session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	s.flights.Add(1)
	s.mu.Unlock()

	defer s.flights.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.baseTimeout)
	defer cancel()

	stopOnClose := context.AfterFunc(s.done, cancel)
	defer stopOnClose()

	return s.loadBase(ctx, sess)
}

func (s *DailyService) loadBase(ctx context.Context, sess *session) error {
	sess.mu.Lock()
	if sess.phase == PhaseBaseReady {
		sess.mu.Unlock()
		return nil
	}

	sess.phase = PhaseBaseLoading
	sess.baseErr = nil
	sess.mu.Unlock()

	logger := s.log(ctx)

	if rec, ok := s.cache.Get(ctx, sess.date); ok {
		sess.mu.Lock()
		sess.adopt(rec)
		sess.mu.Unlock()

		logger.DebugContext(ctx, "daily record served from cache")

		return nil
	}

	rec, err := Execute(ctx, s.exec, s.generateOperation(), sess.date)
	err = stepCause(err)

	sess.mu.Lock()
	if err != nil {
		sess.phase = PhaseFailed
		sess.baseErr = err
		sess.mu.Unlock()

		return err
	}

	sess.adopt(rec)
	sess.mu.Unlock()

	logger.InfoContext(ctx, "daily wisdom created", slog.String("topic", rec.Wisdom.Topic))
	s.publish(ctx, WorkflowEvent{Type: EventDailyCreated, Date: sess.date, Status: string(PhaseBaseReady)})

	if err := s.tasks.Submit(ctx, opIllustrate, func(taskCtx context.Context) error {
		_, err := s.illustrate(taskCtx, sess)
		return err
	}); err != nil {
		logger.WarnContext(ctx, "background illustration not scheduled", slog.Any("error", err))
	}

	return nil
}

// Explain fetches the explanation for date on explicit request. A stored
// explanation is returned without a provider call, and a request while one
// is already loading is a no-op. On failure the error is returned, the
// field is marked failed and a later call retries.
func (s *DailyService) Explain(ctx context.Context, date string) (*Snapshot, error) {
	date, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithDate(ctx, date)

	sess, err := s.readySession(ctx, date)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.record.HasExplanation() {
		sess.explanation = FieldReady
		snap := sess.snapshot()
		sess.mu.Unlock()

		return snap, nil
	}

	if sess.explanation == FieldLoading {
		snap := sess.snapshot()
		sess.mu.Unlock()

		return snap, nil
	}

	sess.explanation = FieldLoading
	sess.explanationErr = nil
	in := derivedInput{date: date, record: sess.record.Clone()}
	sess.mu.Unlock()

	text, err := Execute(ctx, s.exec, s.explainOperation(), in)
	err = stepCause(err)

	sess.mu.Lock()
	if err != nil {
		sess.explanation = FieldFailed
		sess.explanationErr = err
		snap := sess.snapshot()
		sess.mu.Unlock()

		s.publish(ctx, WorkflowEvent{Type: EventExplanationFailed, Date: date, Status: string(FieldFailed), Error: err.Error()})

		return snap, err
	}

	domain.RecordPatch{Explanation: text}.Apply(sess.record)
	sess.explanation = FieldReady
	snap := sess.snapshot()
	sess.mu.Unlock()

	s.log(ctx).InfoContext(ctx, "explanation ready")
	s.publish(ctx, WorkflowEvent{Type: EventExplanationReady, Date: date, Status: string(FieldReady)})

	return snap, nil
}

// Illustrate fetches the illustration for date if it is not set or loading.
// Provider failures are not returned: they show up as FieldFailed in the
// snapshot. Only a missing record or a malformed date is an error.
func (s *DailyService) Illustrate(ctx context.Context, date string) (*Snapshot, error) {
	date, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithDate(ctx, date)

	sess, err := s.readySession(ctx, date)
	if err != nil {
		return nil, err
	}

	snap, _ := s.illustrate(ctx, sess)

	return snap, nil
}

func (s *DailyService) illustrate(ctx context.Context, sess *session) (*Snapshot, error) {
	sess.mu.Lock()
	if sess.record == nil {
		snap := sess.snapshot()
		sess.mu.Unlock()

		return snap, domain.NewNotFoundError("daily record", sess.date)
	}

	if sess.record.HasImage() {
		sess.illustration = FieldReady
		snap := sess.snapshot()
		sess.mu.Unlock()

		return snap, nil
	}

	if sess.illustration == FieldLoading {
		snap := sess.snapshot()
		sess.mu.Unlock()

		return snap, nil
	}

	sess.illustration = FieldLoading
	sess.illustrationErr = nil
	in := derivedInput{date: sess.date, record: sess.record.Clone()}
	sess.mu.Unlock()

	image, err := Execute(ctx, s.exec, s.illustrateOperation(), in)
	err = stepCause(err)

	sess.mu.Lock()
	switch {
	case err != nil:
		sess.illustration = FieldFailed
		sess.illustrationErr = err
	case image == "":
		sess.illustration = FieldUnavailable
	default:
		domain.RecordPatch{ImageURL: image}.Apply(sess.record)
		sess.illustration = FieldReady
	}

	status := sess.illustration
	snap := sess.snapshot()
	sess.mu.Unlock()

	logger := s.log(ctx)

	switch status {
	case FieldFailed:
		logger.WarnContext(ctx, "illustration failed", slog.Any("error", err))
		s.publish(ctx, WorkflowEvent{Type: EventIllustrationFailed, Date: sess.date, Status: string(status), Error: err.Error()})
	case FieldUnavailable:
		logger.InfoContext(ctx, "provider returned no illustration")
		s.publish(ctx, WorkflowEvent{Type: EventIllustrationUnavailable, Date: sess.date, Status: string(status)})
	default:
		logger.InfoContext(ctx, "illustration ready")
		s.publish(ctx, WorkflowEvent{Type: EventIllustrationReady, Date: sess.date, Status: string(status)})
	}

	return snap, err
}

// Snapshot returns the in-memory state for date without touching the cache
// or providers. Unknown dates report PhaseUninitialized.
func (s *DailyService) Snapshot(date string) *Snapshot {
	s.mu.Lock()
	sess, ok := s.sessions[date]
	s.mu.Unlock()

	if !ok {
		return newSession(date).snapshot()
	}

	return sess.lockedSnapshot()
}

// Lookup returns the stored record for date without calling any provider.
func (s *DailyService) Lookup(ctx context.Context, date string) (*domain.DailyRecord, error) {
	date, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	sess, ok := s.sessions[date]
	s.mu.Unlock()

	if ok {
		sess.mu.Lock()
		rec := sess.record.Clone()
		sess.mu.Unlock()

		if rec != nil {
			return rec, nil
		}
	}

	if rec, ok := s.cache.Get(ctx, date); ok {
		return rec, nil
	}

	return nil, domain.NewNotFoundError("daily record", date)
}

// History returns up to limit stored records, newest first. Records that
// turn out to be missing or corrupt are skipped.
func (s *DailyService) History(ctx context.Context, limit int) ([]*domain.DailyRecord, error) {
	dates, err := s.cache.Dates(ctx)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}

	fetches := make([]func(context.Context) (*domain.DailyRecord, error), len(dates))
	for i, date := range dates {
		fetches[i] = func(ctx context.Context) (*domain.DailyRecord, error) {
			if rec, ok := s.cache.Get(ctx, date); ok {
				return rec, nil
			}

			return nil, domain.NewNotFoundError("daily record", date)
		}
	}

	records := make([]*domain.DailyRecord, 0, len(dates))
	for _, r := range ParallelPartialLimit(ctx, s.concurrency, fetches...) {
		if r.Err == nil {
			records = append(records, r.Value)
		}
	}

	return records, nil
}

// Prune evicts stored records older than keepDays days, counting today as
// the first day kept, and returns how many were evicted. Today is never
// evicted.
func (s *DailyService) Prune(ctx context.Context, keepDays int) (int, error) {
	if keepDays < 1 {
		return 0, domain.NewValidationErrorWithValue("keepDays", "must be at least 1", keepDays)
	}

	now := s.clock().In(s.loc)
	cutoff := domain.DateKey(now.AddDate(0, 0, -(keepDays - 1)))

	dates, err := s.cache.Dates(ctx)
	if err != nil {
		return 0, err
	}

	stale := make([]string, 0, len(dates))
	for _, date := range dates {
		if date < cutoff {
			stale = append(stale, date)
		}
	}

	err = FanOut(ctx, s.concurrency, stale, func(ctx context.Context, date string) error {
		return s.cache.Evict(ctx, date)
	})

	s.mu.Lock()
	for _, date := range stale {
		delete(s.sessions, date)
	}
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "pruned stale records", slog.Int("count", len(stale)), slog.String("cutoff", cutoff))

	return len(stale), nil
}

// Close waits for base fetches and background work to finish. If ctx
// expires first they are canceled.
func (s *DailyService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	fetched := make(chan struct{})
	go func() {
		s.flights.Wait()
		close(fetched)
	}()

	select {
	case <-fetched:
	case <-ctx.Done():
		s.stop()
		<-fetched
	}

	err := s.tasks.Shutdown(ctx)
	s.stop()

	return err
}

func (s *DailyService) session(date string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[date]
	if !ok {
		sess = newSession(date)
		s.sessions[date] = sess
	}

	return sess
}

// readySession returns the session for date once its base content is
// available, adopting a cached record if this process has not seen the date.
// Dates without a record get no session.
func (s *DailyService) readySession(ctx context.Context, date string) (*session, error) {
	s.mu.Lock()
	sess, known := s.sessions[date]
	s.mu.Unlock()

	if known {
		sess.mu.Lock()
		ready := sess.phase == PhaseBaseReady
		sess.mu.Unlock()

		if ready {
			return sess, nil
		}
	}

	rec, ok := s.cache.Get(ctx, date)
	if !ok {
		return nil, domain.NewNotFoundError("daily record", date)
	}

	sess = s.session(date)

	sess.mu.Lock()
	if sess.phase != PhaseBaseReady {
		sess.adopt(rec)
	}
	sess.mu.Unlock()

	return sess, nil
}

func (s *DailyService) generateOperation() Operation[string, *domain.WisdomEntry, *domain.DailyRecord, *domain.DailyRecord] {
	return Operation[string, *domain.WisdomEntry, *domain.DailyRecord, *domain.DailyRecord]{
		Name: "generate_wisdom",
		Perform: func(ctx context.Context, _ string) (*domain.WisdomEntry, error) {
			var wisdom *domain.WisdomEntry

			err := s.observe(ctx, opGenerate, func(ctx context.Context) error {
				var err error
				wisdom, err = s.providers.Wisdom.Generate(ctx)

				return err
			})
			if err != nil {
				return nil, domain.NewProviderError("wisdom", opGenerate, err)
			}

			return wisdom, nil
		},
		Verify: func(_ context.Context, date string, wisdom *domain.WisdomEntry) (*domain.DailyRecord, error) {
			if wisdom == nil {
				return nil, domain.NewProviderError("wisdom", opGenerate, errors.New("empty response"))
			}

			rec := domain.NewDailyRecord(date, *wisdom)
			if err := rec.Validate(); err != nil {
				return nil, domain.NewProviderError("wisdom", opGenerate, err)
			}

			return rec, nil
		},
		Archive: func(ctx context.Context, _ string, rec *domain.DailyRecord) error {
			if err := s.cache.Put(ctx, rec); err != nil {
				s.log(ctx).WarnContext(ctx, "daily record not persisted, serving from memory", slog.Any("error", err))
			}

			return nil
		},
		Respond: func(_ context.Context, _ string, rec *domain.DailyRecord) (*domain.DailyRecord, error) {
			return rec, nil
		},
	}
}

func (s *DailyService) explainOperation() Operation[derivedInput, string, string, string] {
	return Operation[derivedInput, string, string, string]{
		Name: "explain_wisdom",
		Perform: func(ctx context.Context, in derivedInput) (string, error) {
			var text string

			err := s.observe(ctx, opExplain, func(ctx context.Context) error {
				var err error
				text, err = s.providers.Explanation.Explain(ctx, in.record.Wisdom)

				return err
			})
			if err != nil {
				return "", domain.NewProviderError("explanation", opExplain, err)
			}

			return text, nil
		},
		Verify: func(_ context.Context, _ derivedInput, text string) (string, error) {
			if strings.TrimSpace(text) == "" {
				return "", domain.NewProviderError("explanation", opExplain, errors.New("empty explanation"))
			}

			return text, nil
		},
		Archive: func(ctx context.Context, in derivedInput, text string) error {
			s.persistPatch(ctx, in, domain.RecordPatch{Explanation: text})
			return nil
		},
		Respond: func(_ context.Context, _ derivedInput, text string) (string, error) {
			return text, nil
		},
	}
}

func (s *DailyService) illustrateOperation() Operation[derivedInput, string, string, string] {
	return Operation[derivedInput, string, string, string]{
		Name: "illustrate_wisdom",
		Perform: func(ctx context.Context, in derivedInput) (string, error) {
			var image string

			err := s.observe(ctx, opIllustrate, func(ctx context.Context) error {
				var err error
				image, err = s.providers.Illustration.Illustrate(ctx, in.record.Wisdom)

				return err
			})
			if err != nil {
				return "", domain.NewProviderError("illustration", opIllustrate, err)
			}

			return image, nil
		},
		Verify: func(_ context.Context, _ derivedInput, image string) (string, error) {
			return strings.TrimSpace(image), nil
		},
		Archive: func(ctx context.Context, in derivedInput, image string) error {
			if image != "" {
				s.persistPatch(ctx, in, domain.RecordPatch{ImageURL: image})
			}

			return nil
		},
		Respond: func(_ context.Context, _ derivedInput, image string) (string, error) {
			return image, nil
		},
	}
}

// persistPatch merges a derived field into the cache. If the stored record
// has vanished (evicted, or never written because the store was failing)
// the in-memory record is written back whole. Storage failures are logged;
// the session keeps serving the value from memory.
func (s *DailyService) persistPatch(ctx context.Context, in derivedInput, patch domain.RecordPatch) {
	if _, err := s.cache.MergeOrCreate(ctx, in.record, patch); err != nil {
		s.log(ctx).WarnContext(ctx, "derived field not persisted, serving from memory", slog.Any("error", err))
	}
}

// observe wraps a provider call in a span and records its outcome.
func (s *DailyService) observe(ctx context.Context, operation string, call func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "provider."+operation,
		trace.WithAttributes(attribute.String("provider.operation", operation)))
	defer span.End()

	start := time.Now()
	err := call(ctx)

	result := "ok"
	if err != nil {
		result = "error"

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	s.recorder.ProviderCall(operation, result, time.Since(start))

	return err
}

func (s *DailyService) publish(ctx context.Context, ev WorkflowEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log(ctx).WarnContext(ctx, "event not published",
			slog.String("event", ev.Type), slog.Any("error", err))
	}
}

func (s *DailyService) log(ctx context.Context) *slog.Logger {
	if l, ok := logging.Lookup(ctx); ok {
		return l.With(slog.String("component", "daily_service"))
	}

	return s.logger
}

// stepCause drops the executor's step wrapping so snapshots and callers see
// the domain error itself.
func stepCause(err error) error {
	var ee *ExecutionError
	if errors.As(err, &ee) && ee.Cause != nil {
		return ee.Cause
	}

	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
