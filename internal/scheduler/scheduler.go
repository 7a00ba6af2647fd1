package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"BlockScreener/internal/model"
	"BlockScreener/internal/notifier"
	"BlockScreener/internal/recorder"
	"BlockScreener/internal/snapshot"
)

// Trigger kinds recorded with every cycle.
const (
	TriggerTick   = "TICK"
	TriggerManual = "MANUAL"
	TriggerResume = "RESUME"
)

// Cycle produces one ranked view.
type Cycle interface {
	Collect(ctx context.Context) ([]model.RankedRow, model.CycleStats, error)
	Block() string
}

// Cache is the history cache surface needed for maintenance.
type Cache interface {
	Prune() int
	Len() int
}

// Notifier delivers alerts; nil disables them.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options configures a Scheduler.
type Options struct {
	Interval        time.Duration
	MaintenanceCron string
	// AlertAfter sends one alert once this many cycles in a row have failed.
	AlertAfter int
	TopN       int
}

// Scheduler drives refresh cycles. At most one cycle runs at a time; the
// next tick is armed Interval after the previous cycle finishes.
type Scheduler struct {
	cycle     Cycle
	publisher *snapshot.Publisher
	recorder  recorder.Recorder
	notifier  Notifier
	cache     Cache
	cron      *cron.Cron
	opts      Options
	ctx       context.Context

	mu         sync.Mutex
	refreshing bool
	paused     bool
	stopped    bool
	timer      *time.Timer
	status     model.Status
	wg         sync.WaitGroup
}

// New creates a Scheduler. notifier may be nil.
func New(cycle Cycle, pub *snapshot.Publisher, rec recorder.Recorder, n Notifier, cache Cache, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Second
	}
	if opts.MaintenanceCron == "" {
		opts.MaintenanceCron = "0 5 0 * * *"
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		cycle:     cycle,
		publisher: pub,
		recorder:  rec,
		notifier:  n,
		cache:     cache,
		cron:      cron.New(cron.WithSeconds()),
		opts:      opts,
		ctx:       context.Background(),
		status:    model.Status{State: model.StateIdle, Block: cycle.Block(), Interval: opts.Interval},
	}
}

// Start registers maintenance jobs and runs the first cycle immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.opts.MaintenanceCron, s.maintenance); err != nil {
		return fmt.Errorf("register maintenance task: %w", err)
	}
	s.cron.Start()
	log.Info().Str("block", s.cycle.Block()).Dur("interval", s.opts.Interval).Msg("scheduler started")
	s.trigger(TriggerTick)
	return nil
}

// Stop cancels the pending tick and waits for an in-flight cycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

// Refresh runs one cycle now, even while paused. It returns false when a
// cycle is already running.
func (s *Scheduler) Refresh(source string) bool {
	s.recordControl("REFRESH", source)
	return s.trigger(TriggerManual)
}

// Pause stops future ticks. An in-flight cycle is not interrupted.
func (s *Scheduler) Pause(source string) bool {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return false
	}
	s.paused = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.recordControl("PAUSE", source)
	log.Info().Str("source", source).Msg("refresh paused")
	return true
}

// Resume re-enables ticks and refreshes immediately.
func (s *Scheduler) Resume(source string) bool {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return false
	}
	s.paused = false
	s.mu.Unlock()

	s.recordControl("RESUME", source)
	log.Info().Str("source", source).Msg("refresh resumed")
	// A cycle already in flight arms the next tick when it finishes.
	s.trigger(TriggerResume)
	return true
}

// State returns the current lifecycle state.
func (s *Scheduler) State() model.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Status returns a copy of the loop status.
func (s *Scheduler) Status() model.Status {
	s.mu.Lock()
	st := s.status
	st.State = s.stateLocked()
	s.mu.Unlock()
	if s.cache != nil {
		st.CachedSeries = s.cache.Len()
	}
	return st
}

func (s *Scheduler) stateLocked() model.SchedulerState {
	switch {
	case s.refreshing:
		return model.StateRefreshing
	case s.paused:
		return model.StatePaused
	default:
		return model.StateIdle
	}
}

func (s *Scheduler) trigger(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshing || s.stopped {
		return false
	}
	if kind == TriggerTick && s.paused {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.refreshing = true
	s.wg.Add(1)
	go s.run(kind)
	return true
}

func (s *Scheduler) run(kind string) {
	defer s.wg.Done()

	rows, stats, err := s.collect()
	evt := &recorder.CycleEvent{
		ID:              uuid.NewString(),
		Block:           s.cycle.Block(),
		Trigger:         kind,
		Status:          "OK",
		Symbols:         stats.Symbols,
		Quotes:          stats.Quotes,
		Histories:       stats.Histories,
		HistoryFailures: stats.HistoryFailures,
		Rows:            stats.Rows,
		StartedAt:       stats.StartedAt,
		Elapsed:         stats.Elapsed,
	}
	if err != nil {
		evt.Status = "FAILED"
		evt.Error = err.Error()
		log.Error().Err(err).Str("trigger", kind).Msg("refresh cycle failed")
	} else {
		snap := s.publisher.Publish(s.cycle.Block(), rows, stats)
		evt.ID = snap.ID
		if len(rows) > 0 {
			evt.TopCode = rows[0].Code
		}
	}
	if recErr := s.recorder.RecordCycle(evt); recErr != nil {
		log.Error().Err(recErr).Msg("record cycle")
	}

	s.mu.Lock()
	s.refreshing = false
	s.status.Cycles++
	s.status.LastElapsed = stats.Elapsed
	failures := 0
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
		failures = s.status.Failures
	} else {
		s.status.Failures = 0
		s.status.LastError = ""
		s.status.LastUpdate = time.Now()
		s.status.Rows = len(rows)
	}
	if !s.paused && !s.stopped {
		s.timer = time.AfterFunc(s.opts.Interval, func() { s.trigger(TriggerTick) })
	}
	s.mu.Unlock()

	if err != nil && s.opts.AlertAfter > 0 && failures == s.opts.AlertAfter {
		s.notify(notifier.FormatCycleFailure(s.cycle.Block(), failures, err))
	}
}

// collect runs one cycle, turning a panic into a failed cycle so the loop
// keeps going.
func (s *Scheduler) collect() (rows []model.RankedRow, stats model.CycleStats, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("block", s.cycle.Block()).Msg("refresh cycle panicked")
			rows = nil
			stats = model.CycleStats{Block: s.cycle.Block(), StartedAt: started, Elapsed: time.Since(started)}
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return s.cycle.Collect(s.ctx)
}

func (s *Scheduler) maintenance() {
	if s.cache == nil {
		return
	}
	dropped := s.cache.Prune()
	log.Info().Int("dropped", dropped).Int("remaining", s.cache.Len()).Msg("history cache pruned")
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/refresh", "刷新":
		if s.Refresh("telegram") {
			return "🔄 已触发刷新"
		}
		return "⏳ 刷新进行中，本次请求已忽略"
	case "/pause", "暂停":
		if s.Pause("telegram") {
			return "⏸ 已暂停自动刷新"
		}
		return "已处于暂停状态"
	case "/resume", "继续":
		if s.Resume("telegram") {
			return "▶️ 已恢复自动刷新"
		}
		return "自动刷新未暂停"
	case "/status", "状态":
		return notifier.FormatStatus(s.Status())
	case "/top", "排行":
		n := s.opts.TopN
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		snap := s.publisher.Latest()
		if snap == nil {
			return "暂无数据，请稍候"
		}
		return notifier.FormatTopRows(snap.Block, snap.Rows, snap.GeneratedAt, n)
	default:
		return helpText
	}
}

const helpText = "可用命令:\n• /refresh 立即刷新\n• /pause 暂停\n• /resume 继续\n• /status 状态\n• /top [n] 排行"

func (s *Scheduler) recordControl(action, source string) {
	if err := s.recorder.RecordControl(&recorder.ControlEvent{Action: action, Source: source}); err != nil {
		log.Error().Err(err).Msg("record control event")
	}
}

func (s *Scheduler) notify(text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendWithRetry(s.ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
