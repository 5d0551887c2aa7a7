// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager implements the online-time reward engine: the catalog,
// per-session history, origin throttle, evaluation, delivery and the
// scheduler that drives them.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
	"github.com/ManuGH/playreward/internal/log"
	"github.com/ManuGH/playreward/internal/metrics"
	"github.com/ManuGH/playreward/internal/telemetry"
)

// Settings are the runtime options of the engine.
type Settings struct {
	Enabled            bool
	PerOnline          bool
	PerTime            bool
	ForceMail          bool
	MaxSameOriginCount int
	InitialDelay       time.Duration
	Interval           time.Duration
	MailSenderID       uint32
}

// DefaultMaxSameOriginCount is the per-origin session cap.
const DefaultMaxSameOriginCount = 3

func (s Settings) categories() Categories {
	return Categories{PerOnline: s.PerOnline, PerTime: s.PerTime}
}

// Options wires the service collaborators.
type Options struct {
	Store    ports.Store
	World    ports.World
	Texts    ports.Localizer
	Settings Settings
}

// TickReport summarizes one tick.
type TickReport struct {
	RunID     string
	Skipped   string // non-empty when the tick did nothing
	Sessions  int
	Loading   int
	Throttled int
	Eval      EvalStats
	Delivery  DeliveryStats
	FlushErr  error
	Started   time.Time
	Duration  time.Duration
}

// Status is a point-in-time view for operators.
type Status struct {
	Enabled   bool
	Retrying  bool // catalog load failed and is retried every interval
	State     State
	Remaining time.Duration
	Rewards   int
	Histories int
	LastRun   *TickReport
}

// Service owns the reward engine state. All methods are safe for concurrent
// use; a single mutex serializes them, so ticks never overlap with admin
// commands or lifecycle hooks.
type Service struct {
	mu sync.Mutex

	settings          Settings
	enabled           bool
	disabledForNoData bool
	disabledForLookup bool
	retryIn           time.Duration

	store     ports.Store
	world     ports.World
	catalog   *Catalog
	history   *History
	throttle  *OriginThrottle
	evaluator *Evaluator
	deliverer *Deliverer
	scheduler *Scheduler
	next      nextRenderer
	pending   *model.PendingGrants
	lastRun   *TickReport
	unflushed bool // last history flush failed

	tracer trace.Tracer
	logger zerolog.Logger
}

// NewService constructs the engine. It does not load anything; call
// ApplyConfig and Init.
func NewService(opts Options) *Service {
	s := &Service{
		store:   opts.Store,
		world:   opts.World,
		pending: model.NewPendingGrants(),
		tracer:  telemetry.Tracer("playreward/reward"),
		logger:  log.WithComponent("reward"),
	}
	s.catalog = NewCatalog(opts.Store, opts.World, opts.World)
	s.history = NewHistory(opts.Store)
	s.throttle = NewOriginThrottle(opts.Settings.MaxSameOriginCount)
	s.evaluator = NewEvaluator(s.catalog, s.history, s.throttle)
	s.deliverer = NewDeliverer(opts.World, opts.Store, s.catalog, opts.Texts, DeliveryOptions{})
	s.scheduler = NewScheduler(opts.Settings.InitialDelay, opts.Settings.Interval, s.runTick)
	s.next = nextRenderer{items: opts.World, factions: opts.World, texts: opts.Texts}
	s.applySettings(opts.Settings)
	return s
}

// ApplyConfig is the on-configuration-loaded hook. On reload it cancels the
// timer, reloads the catalog and re-arms if still enabled; on first load it
// only records the settings and Init does the rest.
func (s *Service) ApplyConfig(ctx context.Context, settings Settings, reload bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reload {
		s.scheduler.Cancel()
	}
	s.applySettings(settings)
	if !reload || !s.enabled {
		return nil
	}
	return s.loadAndArm(ctx)
}

// Init is the startup hook: loads the catalog and arms the scheduler. A
// catalog that cannot be loaded does not stop the process; Update retries
// the load every interval.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		s.logger.Info().Msg("online rewards disabled")
		return nil
	}
	_ = s.loadAndArm(ctx)
	return nil
}

func (s *Service) applySettings(settings Settings) {
	if settings.MaxSameOriginCount <= 0 {
		settings.MaxSameOriginCount = DefaultMaxSameOriginCount
	}
	s.settings = settings
	s.enabled = settings.Enabled
	s.disabledForNoData = false
	s.disabledForLookup = false

	if s.enabled && !settings.categories().Any() {
		s.enabled = false
		s.logger.Error().Str(log.FieldEvent, "reward.config").Msg("both reward categories are disabled, disabling online rewards")
	}

	s.throttle.SetMax(settings.MaxSameOriginCount)
	s.deliverer.SetOptions(DeliveryOptions{ForceMail: settings.ForceMail, MailSenderID: settings.MailSenderID})
	s.scheduler.SetPeriods(settings.InitialDelay, settings.Interval)
	metrics.RecordFeatureEnabled(s.enabled)
}

// loadAndArm loads the catalog and arms the scheduler. When the load fails
// for a reason other than missing data, an already loaded catalog stays in
// service; without one the feature is switched off and the load is retried
// from Update.
func (s *Service) loadAndArm(ctx context.Context) error {
	s.disabledForLookup = false
	n, err := s.catalog.Load(ctx)
	metrics.RecordCatalogSize(s.catalog.Len())
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNoData):
		s.setEnabled(false)
		s.disabledForNoData = true
		s.logger.Warn().Msg("no valid online rewards, disabling until one is added")
		return nil
	case s.catalog.Len() > 0:
		s.logger.Error().Err(err).Int(log.FieldCount, s.catalog.Len()).Msg("failed to reload online rewards, keeping the loaded set")
		s.scheduler.Arm()
		return err
	default:
		s.setEnabled(false)
		s.disabledForLookup = true
		s.retryIn = s.scheduler.Interval()
		s.logger.Error().Err(err).Dur("retry_in", s.retryIn).Msg("failed to load online rewards")
		return err
	}
	s.setEnabled(true)
	s.logger.Info().Int(log.FieldCount, n).Msg("online rewards ready")
	s.scheduler.Arm()
	return nil
}

func (s *Service) setEnabled(on bool) {
	s.enabled = on
	metrics.RecordFeatureEnabled(on)
}

// Update is the on-process-tick hook: it applies completed history loads and
// advances the scheduler by diff.
func (s *Service) Update(ctx context.Context, diff time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Drain()
	if s.disabledForLookup {
		s.retryIn -= diff
		if s.retryIn <= 0 {
			_ = s.loadAndArm(ctx)
		}
		return false
	}
	if !s.enabled {
		return false
	}
	return s.scheduler.Advance(ctx, diff)
}

// SessionStarted is the on-session-start hook.
func (s *Service) SessionStarted(id model.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	s.history.EnsureLoaded(id)
}

// SessionEnded is the on-session-end hook.
func (s *Service) SessionEnded(id model.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Remove(id)
	metrics.RecordHistoryRecords(s.history.Len())
}

// AddReward validates and persists a new reward. When the feature was off
// only for lack of data, it is switched back on.
func (s *Service) AddReward(ctx context.Context, req AddRequest) (model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := s.catalog.Add(ctx, req)
	if err != nil {
		return model.Definition{}, err
	}
	metrics.RecordCatalogSize(s.catalog.Len())

	if s.disabledForNoData {
		s.disabledForNoData = false
		s.setEnabled(true)
		s.scheduler.Arm()
		s.logger.Info().Uint32(log.FieldRewardID, uint32(def.ID)).Msg("online rewards re-enabled")
	}
	return def, nil
}

// DeleteReward removes a reward.
func (s *Service) DeleteReward(ctx context.Context, id model.RewardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.catalog.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordCatalogSize(s.catalog.Len())
	return nil
}

// Rewards lists the catalog in insertion order.
func (s *Service) Rewards() []model.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.List()
}

// Reward returns one definition.
func (s *Service) Reward(id model.RewardID) (model.Definition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Get(id)
}

// ReloadCatalog reloads the definitions from storage and re-arms the timer.
func (s *Service) ReloadCatalog(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Cancel()
	s.enabled = s.settings.Enabled && s.settings.categories().Any()
	s.disabledForNoData = false
	if !s.enabled {
		return 0, model.ErrFeatureDisabled
	}
	if err := s.loadAndArm(ctx); err != nil {
		return 0, err
	}
	if s.disabledForNoData {
		return 0, model.ErrNoData
	}
	return s.catalog.Len(), nil
}

// RunNow cancels the timer, runs one tick synchronously and re-arms.
func (s *Service) RunNow(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return TickReport{}, model.ErrFeatureDisabled
	}
	if err := s.scheduler.RunNow(ctx); err != nil {
		return TickReport{}, err
	}
	return *s.lastRun, nil
}

// Next renders the time left until each upcoming grant for one session.
func (s *Service) Next(ctx context.Context, id model.SessionID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return nil, model.ErrFeatureDisabled
	}
	sess, ok, err := s.world.Session(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve session %d: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, model.ErrSessionNotFound)
	}
	if sess.Played <= 0 {
		return nil, nil
	}

	cats := s.settings.categories()
	var lines []string
	for _, def := range s.catalog.List() {
		if !cats.Allows(def.Category()) || sess.Level < def.MinLevel {
			continue
		}
		last := s.history.SecondsAtLastGrant(id, def.ID)
		for _, left := range NextGrant(def, sess.Played, last) {
			lines = append(lines, s.next.lines(ctx, sess, def, left)...)
		}
	}
	return lines, nil
}

// Status returns an operator view of the engine.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Enabled:   s.enabled,
		Retrying:  s.disabledForLookup,
		State:     s.scheduler.State(),
		Remaining: s.scheduler.Remaining(),
		Rewards:   s.catalog.Len(),
		Histories: s.history.Len(),
	}
	if s.lastRun != nil {
		r := *s.lastRun
		st.LastRun = &r
	}
	return st
}

// Close cancels the timer and waits for in-flight history loads.
func (s *Service) Close() {
	s.mu.Lock()
	s.scheduler.Cancel()
	s.mu.Unlock()
	s.history.Close()
}

// runTick is the scheduler callback. It runs with s.mu held.
func (s *Service) runTick(ctx context.Context) {
	start := time.Now()
	report := TickReport{RunID: uuid.NewString(), Started: start}
	ctx = log.ContextWithRunID(ctx, report.RunID)
	ctx, span := s.tracer.Start(ctx, "reward.tick")
	logger := log.WithContext(ctx, s.logger)

	var tickErr error
	defer func() {
		report.Duration = time.Since(start)
		s.lastRun = &report
		metrics.ObserveRewardTick(report.Duration)
		metrics.RecordHistoryRecords(s.history.Len())
		telemetry.EndSpan(span, tickErr, "world_error",
			telemetry.RewardTickAttributes(report.RunID, report.Sessions, report.Eval.Staged, report.Eval.Withheld, report.Delivery.Total())...)
	}()

	if !s.pending.Empty() {
		logger.WithLevel(zerolog.FatalLevel).
			Str(log.FieldEvent, "reward.pending_not_empty").
			Int(log.FieldCount, s.pending.Len()).
			Msg("pending grants left over from a previous tick, discarding")
		metrics.IncInvariantViolation("pending_not_empty")
		s.pending.Reset()
	}

	all, err := s.world.ActiveSessions(ctx)
	if err != nil {
		tickErr = err
		report.Skipped = "world_error"
		metrics.IncRewardTick("world_error")
		logger.Error().Err(err).Msg("cannot list active sessions, skipping tick")
		return
	}

	inWorld := make([]model.Session, 0, len(all))
	for _, sess := range all {
		if sess.InWorld {
			inWorld = append(inWorld, sess)
		}
	}
	if len(inWorld) == 0 {
		report.Skipped = "empty_world"
		metrics.IncRewardTick("empty_world")
		s.pruneHistory(logger, all)
		return
	}
	report.Sessions = len(inWorld)

	s.throttle.Rebuild(inWorld)
	report.Throttled = s.throttle.Throttled()
	metrics.RecordSessionsThrottled(report.Throttled)

	cats := s.settings.categories()
	for _, sess := range inWorld {
		if !s.history.Loaded(sess.ID) {
			s.history.EnsureLoaded(sess.ID)
			report.Loading++
			continue
		}
		report.Eval.add(s.evaluator.Evaluate(sess, cats, s.pending))
	}
	metrics.AddGrantsStaged(report.Eval.Staged)
	metrics.AddGrantsWithheld(report.Eval.Withheld)

	report.Delivery = s.deliverer.Deliver(ctx, s.pending)
	s.pending.Reset()
	for outcome, n := range report.Delivery {
		metrics.AddGrantsDelivered(string(outcome), n)
	}

	if err := s.history.Flush(ctx); err != nil {
		report.FlushErr = err
		s.unflushed = true
		metrics.IncHistoryFlushFailure()
		logger.Error().Err(err).Msg("history flush failed, next tick will retry")
	} else {
		s.unflushed = false
		s.pruneHistory(logger, all)
	}

	metrics.IncRewardTick("ok")
	logger.Debug().
		Int("sessions", report.Sessions).
		Int("loading", report.Loading).
		Int("staged", report.Eval.Staged).
		Int("withheld", report.Eval.Withheld).
		Int("delivered", report.Delivery.Total()).
		Msg("reward tick finished")
}

// pruneHistory forgets sessions that left without a session-end hook. Records
// are only dropped once their marks are persisted.
func (s *Service) pruneHistory(logger zerolog.Logger, active []model.Session) {
	if s.unflushed {
		return
	}
	ids := make(map[model.SessionID]bool, len(active))
	for _, sess := range active {
		ids[sess.ID] = true
	}
	if n := s.history.Retain(ids); n > 0 {
		logger.Debug().Int(log.FieldCount, n).Msg("dropped history of departed sessions")
	}
}
