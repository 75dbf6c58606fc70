// Package sync reconciles local state with the one shared remote
// document: debounced wholesale pushes, periodic pulls, and the
// merge-on-pull rules that keep two independently-acting clients
// converging on the same board.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	stdsync "sync"
	"time"

	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/normalize"
)

// Timings from the source deployment. Pushes coalesce rapid edits
// behind a short debounce; failures retry on a longer backoff without
// limit; pulls poll independently.
const (
	DefaultDebounce     = 320 * time.Millisecond
	DefaultBackoff      = 2600 * time.Millisecond
	DefaultPollInterval = 4500 * time.Millisecond
)

// Transport is the wire to the shared document store.
type Transport interface {
	Fetch(ctx context.Context) (any, error)
	Push(ctx context.Context, payload StatePayload) (any, error)
}

// Engine drives synchronization for one client. It owns the document
// lock: every local mutation goes through Apply, which serializes
// against remote merges, marks the engine dirty and arms the debounce
// timer. Only one push is ever in flight; overlapping triggers
// collapse into "stay dirty, retry after the current one completes".
type Engine struct {
	transport Transport

	mu       stdsync.Mutex
	ledger   *ledger.Ledger
	dirty    bool
	inFlight bool

	pushTimer *time.Timer
	stopCh    chan struct{}
	stopOnce  stdsync.Once

	debounce     time.Duration
	backoff      time.Duration
	pollInterval time.Duration

	// onApplied runs after a remote snapshot changed local state.
	onApplied func()
	// onUnavailable runs once per session when the store reports
	// itself unconfigured.
	onUnavailable   func()
	unavailableOnce stdsync.Once
	// persist saves the document locally after remote merges.
	persist func(*model.StateDocument)
}

// Options tune the engine; zero values take the defaults.
type Options struct {
	Debounce      time.Duration
	Backoff       time.Duration
	PollInterval  time.Duration
	OnApplied     func()
	OnUnavailable func()
	Persist       func(*model.StateDocument)
}

// NewEngine wraps l with a sync engine over transport.
func NewEngine(transport Transport, l *ledger.Ledger, opts Options) *Engine {
	e := &Engine{
		transport:     transport,
		ledger:        l,
		stopCh:        make(chan struct{}),
		debounce:      opts.Debounce,
		backoff:       opts.Backoff,
		pollInterval:  opts.PollInterval,
		onApplied:     opts.OnApplied,
		onUnavailable: opts.OnUnavailable,
		persist:       opts.Persist,
	}
	if e.debounce <= 0 {
		e.debounce = DefaultDebounce
	}
	if e.backoff <= 0 {
		e.backoff = DefaultBackoff
	}
	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	return e
}

// Start launches the periodic pull watcher.
func (e *Engine) Start() {
	go e.pollLoop()
}

// Stop halts timers and the poll watcher.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	e.mu.Lock()
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}
	e.mu.Unlock()
}

// Apply runs a local mutation under the document lock. When fn
// succeeds the engine goes dirty and a debounced push is scheduled;
// the mutation is visible locally before any network traffic happens.
func (e *Engine) Apply(fn func(*ledger.Ledger) error) error {
	e.mu.Lock()
	err := fn(e.ledger)
	if err == nil {
		e.markDirtyLocked()
		if e.persist != nil {
			e.persist(e.ledger.Document())
		}
	}
	e.mu.Unlock()
	return err
}

// View runs a read-only fn under the document lock.
func (e *Engine) View(fn func(*ledger.Ledger)) {
	e.mu.Lock()
	fn(e.ledger)
	e.mu.Unlock()
}

// QueueSync marks local state dirty and arms the debounce timer.
func (e *Engine) QueueSync() {
	e.mu.Lock()
	e.markDirtyLocked()
	e.mu.Unlock()
}

// Dirty reports whether unsent local changes exist.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// markDirtyLocked arms (or re-arms) the single debounce timer; rapid
// successive edits collapse into one push.
func (e *Engine) markDirtyLocked() {
	e.dirty = true
	e.scheduleLocked(e.debounce)
}

// scheduleLocked replaces the authoritative push timer. Only the most
// recently scheduled attempt survives.
func (e *Engine) scheduleLocked(delay time.Duration) {
	if e.pushTimer != nil {
		e.pushTimer.Stop()
	}
	e.pushTimer = time.AfterFunc(delay, func() {
		select {
		case <-e.stopCh:
			return
		default:
		}
		e.SyncNow(false)
	})
}

// SyncNow pushes the full local document. Without force it is a no-op
// when clean; when another push is in flight it re-marks dirty and
// lets that push's completion reschedule.
func (e *Engine) SyncNow(force bool) {
	e.mu.Lock()
	if !force && !e.dirty {
		e.mu.Unlock()
		return
	}
	if e.inFlight {
		e.dirty = true
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	// Clear dirty at snapshot time: edits landing while the push is in
	// flight re-mark it and get their own push afterwards.
	e.dirty = false
	payload := e.payloadLocked()
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	echo, err := e.transport.Push(ctx, payload)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false

	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			e.notifyUnavailable()
		}
		logger.Warn("State push failed", logger.F("error", err))
		e.dirty = true
		e.scheduleLocked(e.backoff)
		return
	}

	// The server echoes back what it stored; merging that echo keeps
	// the store authoritative for what actually landed. Skipped when
	// edits arrived mid-flight, since the echo predates them.
	rollover := false
	if !e.dirty {
		rollover = e.applyRemoteLocked(echo)
	}
	if rollover {
		e.markDirtyLocked()
	} else if e.dirty {
		// Edits landed while this push was in flight.
		e.scheduleLocked(e.debounce)
	}

	logger.Debug("State push completed", logger.F("days", len(payload.Days)))
}

// Pull fetches the remote snapshot and merges it. Skipped while a push
// is in flight or local state is dirty, so a pull never clobbers
// not-yet-pushed edits.
func (e *Engine) Pull() {
	e.mu.Lock()
	if e.inFlight || e.dirty {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	payload, err := e.transport.Fetch(ctx)
	cancel()

	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			e.notifyUnavailable()
		}
		// Keep local mode running when the server is unreachable.
		logger.Debug("State pull failed", logger.F("error", err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight || e.dirty {
		return
	}
	if e.applyRemoteLocked(payload) {
		e.markDirtyLocked()
	}
}

// Bootstrap decides who is authoritative on startup: a remote with
// day data (or settings) wins; otherwise non-empty local state is
// force-pushed to seed the store.
func (e *Engine) Bootstrap(ctx context.Context) {
	payload, err := e.transport.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			e.notifyUnavailable()
		}
		logger.Debug("Bootstrap fetch failed", logger.F("error", err))
		return
	}

	remoteDays := RemoteDays(payload)
	hasRemoteDays := false
	if daysMap, ok := remoteDays.(map[string]any); ok {
		hasRemoteDays = len(daysMap) > 0
	}
	hasRemoteSettings := RemoteReminderTimes(payload) != nil

	if hasRemoteDays || hasRemoteSettings {
		e.mu.Lock()
		if e.applyRemoteLocked(payload) {
			e.markDirtyLocked()
		}
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	hasLocalDays := len(e.ledger.Document().Days) > 0
	if hasLocalDays {
		e.dirty = true
	}
	e.mu.Unlock()

	if hasLocalDays {
		e.SyncNow(true)
	}
}

func (e *Engine) pollLoop() {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Pull()
			if e.Dirty() {
				e.mu.Lock()
				e.scheduleLocked(e.debounce)
				e.mu.Unlock()
			}
		case <-e.stopCh:
			return
		}
	}
}

// applyRemoteLocked normalizes a remote snapshot and merges it in:
// deep equality by canonical serialization, wholesale replacement on
// any difference, then a day-rollover re-evaluation. Returns whether
// rollover changed state, the single case where a pull queues a push
// (nothing else ever re-triggers, preventing ping-pong).
func (e *Engine) applyRemoteLocked(payload any) bool {
	remoteDays := RemoteDays(payload)
	if remoteDays == nil {
		return false
	}

	normalizedDays := normalize.DaysMap(remoteDays)
	var normalizedTimes map[model.UserID]string
	if raw := RemoteReminderTimes(payload); raw != nil {
		normalizedTimes = normalize.MorningReminderTimes(raw)
	}

	doc := e.ledger.Document()
	daysChanged := !equalCanonical(doc.Days, normalizedDays)
	settingsChanged := normalizedTimes != nil &&
		!equalCanonical(normalizeTimes(doc.Preferences.MorningReminderTimes), normalizedTimes)

	if !daysChanged && !settingsChanged {
		return false
	}

	if daysChanged {
		e.ledger.ReplaceDays(normalizedDays)
	}
	if settingsChanged {
		doc.Preferences.MorningReminderTimes = normalizedTimes
	}

	// Remote data may contain a day the local clock has not rolled to
	// yet, or be missing today entirely.
	rollover := e.ledger.EnsureDaySpace()

	if e.persist != nil {
		e.persist(doc)
	}
	if e.onApplied != nil {
		e.onApplied()
	}

	logger.Debug("Remote snapshot applied",
		logger.F("daysChanged", daysChanged),
		logger.F("settingsChanged", settingsChanged),
		logger.F("rollover", rollover))

	return rollover
}

func (e *Engine) notifyUnavailable() {
	if e.onUnavailable == nil {
		return
	}
	e.unavailableOnce.Do(e.onUnavailable)
}

// payloadLocked snapshots the document for the wire. The copy means
// the lock can be released while the push is in flight without a
// concurrent mutation racing the marshaler.
func (e *Engine) payloadLocked() StatePayload {
	doc := e.ledger.Document()
	payload := StatePayload{
		Days: copyDays(doc.Days),
		Settings: Settings{
			MorningReminderTimes: map[model.UserID]string{},
		},
	}
	for id, t := range doc.Preferences.MorningReminderTimes {
		payload.Settings.MorningReminderTimes[id] = t
	}
	return payload
}

func copyDays(days map[string]*model.DayRecord) map[string]*model.DayRecord {
	data, err := json.Marshal(days)
	if err != nil {
		return days
	}
	copied := map[string]*model.DayRecord{}
	if err := json.Unmarshal(data, &copied); err != nil {
		return days
	}
	return copied
}

// equalCanonical compares two values by canonical JSON; encoding/json
// writes map keys sorted, so day maps serialize deterministically.
func equalCanonical(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(left) == string(right)
}

func normalizeTimes(times map[model.UserID]string) map[model.UserID]string {
	normalized := model.DefaultMorningReminderTimes()
	for _, id := range model.Users {
		if t := times[id]; model.ValidClock(t) {
			normalized[id] = t
		}
	}
	return normalized
}
