package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"BlockScreener/internal/model"
	"BlockScreener/internal/recorder"
	"BlockScreener/internal/snapshot"
)

type fakeCycle struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeCycle) Block() string { return "自选股" }

func (f *fakeCycle) Collect(ctx context.Context) ([]model.RankedRow, model.CycleStats, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	release, started := f.release, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, model.CycleStats{Symbols: 2}, err
	}
	rows := []model.RankedRow{{Code: "600519", Name: "贵州茅台"}, {Code: "000001", Name: "平安银行"}}
	return rows, model.CycleStats{Symbols: 2, Quotes: 2, Rows: 2, StartedAt: time.Now()}, nil
}

func (f *fakeCycle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type panicCycle struct{ fakeCycle }

func (p *panicCycle) Collect(ctx context.Context) ([]model.RankedRow, model.CycleStats, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if n == 1 {
		panic("index out of range parsing quote")
	}
	return p.fakeCycle.Collect(ctx)
}

type fakeCache struct{ pruned int }

func (c *fakeCache) Prune() int {
	c.pruned++
	return 3
}

func (c *fakeCache) Len() int { return 7 }

type memRecorder struct {
	recorder.NoopRecorder
	mu       sync.Mutex
	cycles   []recorder.CycleEvent
	controls []recorder.ControlEvent
}

func (m *memRecorder) RecordCycle(evt *recorder.CycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, *evt)
	return nil
}

func (m *memRecorder) RecordControl(evt *recorder.ControlEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls = append(m.controls, *evt)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func newTestScheduler(c *fakeCycle, rec *memRecorder, n Notifier) *Scheduler {
	return New(c, snapshot.NewPublisher(), rec, n, &fakeCache{}, Options{Interval: time.Hour, AlertAfter: 2})
}

func TestScheduler_TriggerWhileRefreshingIsNoop(t *testing.T) {
	c := &fakeCycle{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newTestScheduler(c, &memRecorder{}, nil)

	if !s.Refresh("test") {
		t.Fatal("first refresh should start")
	}
	<-c.started
	if s.State() != model.StateRefreshing {
		t.Errorf("expected REFRESHING, got %s", s.State())
	}
	if s.Refresh("test") {
		t.Error("refresh during an in-flight cycle should be a no-op")
	}
	close(c.release)
	s.wg.Wait()

	if c.Calls() != 1 {
		t.Errorf("expected exactly one cycle, got %d", c.Calls())
	}
	if s.State() != model.StateIdle {
		t.Errorf("expected IDLE after cycle, got %s", s.State())
	}
	s.Stop()
}

func TestScheduler_PublishesAndRecords(t *testing.T) {
	c := &fakeCycle{}
	rec := &memRecorder{}
	s := newTestScheduler(c, rec, nil)

	s.Refresh("test")
	s.wg.Wait()

	snap := s.publisher.Latest()
	if snap == nil || len(snap.Rows) != 2 {
		t.Fatalf("expected published snapshot, got %+v", snap)
	}
	if len(rec.cycles) != 1 || rec.cycles[0].Status != "OK" || rec.cycles[0].ID != snap.ID {
		t.Errorf("unexpected cycle record %+v", rec.cycles)
	}
	if rec.cycles[0].TopCode != "600519" || rec.cycles[0].Trigger != TriggerManual {
		t.Errorf("unexpected cycle record %+v", rec.cycles[0])
	}
	st := s.Status()
	if st.Cycles != 1 || st.Rows != 2 || st.LastUpdate.IsZero() || st.CachedSeries != 7 {
		t.Errorf("unexpected status %+v", st)
	}
	s.Stop()
}

func TestScheduler_FailedCycleDoesNotPublish(t *testing.T) {
	c := &fakeCycle{err: errors.New("no quotes fetched")}
	rec := &memRecorder{}
	n := &fakeNotifier{}
	s := newTestScheduler(c, rec, n)

	for i := 0; i < 3; i++ {
		s.Refresh("test")
		s.wg.Wait()
	}
	if s.publisher.Latest() != nil {
		t.Error("failed cycles must not publish")
	}
	if rec.cycles[0].Status != "FAILED" || rec.cycles[0].Error == "" {
		t.Errorf("unexpected record %+v", rec.cycles[0])
	}
	if st := s.Status(); st.Failures != 3 || st.LastError != "no quotes fetched" {
		t.Errorf("unexpected status %+v", st)
	}
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "连续 2 次") {
		t.Errorf("expected one alert after 2 failures, got %v", n.sent)
	}
	s.Stop()
}

func TestScheduler_PanickingCycleReturnsToIdle(t *testing.T) {
	c := &panicCycle{}
	rec := &memRecorder{}
	s := New(c, snapshot.NewPublisher(), rec, nil, &fakeCache{}, Options{Interval: time.Hour})

	if !s.Refresh("test") {
		t.Fatal("refresh should start")
	}
	s.wg.Wait()
	if s.State() != model.StateIdle {
		t.Fatalf("expected IDLE after a panicking cycle, got %s", s.State())
	}
	if len(rec.cycles) != 1 || rec.cycles[0].Status != "FAILED" || !strings.Contains(rec.cycles[0].Error, "panicked") {
		t.Errorf("expected a FAILED cycle record, got %+v", rec.cycles)
	}
	if st := s.Status(); st.Failures != 1 {
		t.Errorf("expected 1 failure, got %+v", st)
	}

	if !s.Refresh("test") {
		t.Fatal("loop should accept triggers after a panic")
	}
	s.wg.Wait()
	if s.publisher.Latest() == nil {
		t.Error("expected the next cycle to publish")
	}
	s.Stop()
}

func TestScheduler_PauseResume(t *testing.T) {
	c := &fakeCycle{}
	rec := &memRecorder{}
	s := newTestScheduler(c, rec, nil)

	if !s.Pause("test") {
		t.Fatal("pause should succeed")
	}
	if s.Pause("test") {
		t.Error("second pause should report no change")
	}
	if s.State() != model.StatePaused {
		t.Errorf("expected PAUSED, got %s", s.State())
	}
	if s.trigger(TriggerTick) {
		t.Error("ticks must not run while paused")
	}

	// A manual refresh runs once but leaves the loop paused.
	if !s.Refresh("test") {
		t.Fatal("manual refresh should run while paused")
	}
	s.wg.Wait()
	if s.State() != model.StatePaused {
		t.Errorf("expected PAUSED after manual refresh, got %s", s.State())
	}
	s.mu.Lock()
	armed := s.timer != nil
	s.mu.Unlock()
	if armed {
		t.Error("no tick should be armed while paused")
	}

	if !s.Resume("test") {
		t.Fatal("resume should succeed")
	}
	s.wg.Wait()
	if c.Calls() != 2 {
		t.Errorf("resume should trigger an immediate refresh, got %d calls", c.Calls())
	}
	if s.State() != model.StateIdle {
		t.Errorf("expected IDLE after resume, got %s", s.State())
	}
	s.mu.Lock()
	armed = s.timer != nil
	s.mu.Unlock()
	if !armed {
		t.Error("expected next tick to be armed after resume")
	}
	if len(rec.controls) != 3 {
		t.Errorf("expected 3 control events, got %v", rec.controls)
	}
	s.Stop()
}

func TestScheduler_PauseDuringCycle(t *testing.T) {
	c := &fakeCycle{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newTestScheduler(c, &memRecorder{}, nil)

	s.Refresh("test")
	<-c.started
	s.Pause("test")
	close(c.release)
	s.wg.Wait()

	if s.publisher.Latest() == nil {
		t.Error("in-flight cycle should complete and publish after pause")
	}
	if s.State() != model.StatePaused {
		t.Errorf("expected PAUSED, got %s", s.State())
	}
	s.Stop()
}

func TestScheduler_TicksRearm(t *testing.T) {
	c := &fakeCycle{}
	s := New(c, snapshot.NewPublisher(), nil, nil, &fakeCache{}, Options{Interval: 10 * time.Millisecond})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	if c.Calls() < 3 {
		t.Errorf("expected ticks to keep firing, got %d calls", c.Calls())
	}
	after := c.Calls()
	time.Sleep(50 * time.Millisecond)
	if c.Calls() != after {
		t.Error("ticks continued after Stop")
	}
}

func TestScheduler_Maintenance(t *testing.T) {
	cache := &fakeCache{}
	s := New(&fakeCycle{}, snapshot.NewPublisher(), nil, nil, cache, Options{})
	s.maintenance()
	if cache.pruned != 1 {
		t.Errorf("expected prune, got %d", cache.pruned)
	}
}

func TestHandleCommand(t *testing.T) {
	c := &fakeCycle{}
	s := newTestScheduler(c, &memRecorder{}, nil)

	if got := s.HandleCommand("/top"); !strings.Contains(got, "暂无数据") {
		t.Errorf("expected no-data reply, got %q", got)
	}
	if got := s.HandleCommand("/refresh"); !strings.Contains(got, "已触发刷新") {
		t.Errorf("unexpected reply %q", got)
	}
	s.wg.Wait()
	if got := s.HandleCommand("/top 1"); !strings.Contains(got, "600519") || strings.Contains(got, "000001") {
		t.Errorf("unexpected top reply %q", got)
	}
	if got := s.HandleCommand("/pause"); !strings.Contains(got, "已暂停") {
		t.Errorf("unexpected reply %q", got)
	}
	if got := s.HandleCommand("/status"); !strings.Contains(got, "已暂停") || !strings.Contains(got, "自选股") {
		t.Errorf("unexpected status reply %q", got)
	}
	if got := s.HandleCommand("/resume"); !strings.Contains(got, "已恢复") {
		t.Errorf("unexpected reply %q", got)
	}
	s.wg.Wait()
	if got := s.HandleCommand("hello"); !strings.Contains(got, "可用命令") {
		t.Errorf("expected help, got %q", got)
	}
	s.Stop()
}
