package player

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Uschl/video-player/internal/platform/metrics"
)

const (
	// DefaultSyncInterval is the cadence of the drift-correction loop.
	DefaultSyncInterval = 250 * time.Millisecond

	// DefaultDriftThreshold is the slave-to-master position difference, in
	// seconds, above which a playing slave is corrected.
	DefaultDriftThreshold = 0.5
)

type readyCallback struct {
	fn   func()
	once bool
}

// Engine keeps an arbitrary number of independently buffering media elements
// locked to a single timeline. The first registered element is the timing
// master; every other element is corrected to follow it. Element
// notifications enter through Dispatch; the engine's reactions and the
// periodic drift-correction loop publish their results to the StateStore.
//
// All methods are safe for concurrent use. Dispatch calls and drift ticks
// are serialized by one mutex, so each runs to completion before the next.
// MediaElement implementations must be comparable (pointer types); elements
// are tracked by identity.
type Engine struct {
	store   StateStore
	log     *slog.Logger
	metrics *metrics.Metrics

	interval  time.Duration
	threshold float64

	mu       sync.Mutex
	elements []MediaElement
	waiting  map[MediaElement]struct{}
	buffered map[MediaElement]float64
	ready    []readyCallback
	backup   *PlayState

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithSyncInterval overrides the drift-correction cadence.
func WithSyncInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithDriftThreshold overrides the drift threshold in seconds.
func WithDriftThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.threshold = t
		}
	}
}

// WithMetrics installs a metrics handle. May be nil to disable recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine constructs an engine bound to the given store and starts its
// drift-correction loop. The caller must Close the engine to stop the loop.
func NewEngine(store StateStore, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		log:       log,
		interval:  DefaultSyncInterval,
		threshold: DefaultDriftThreshold,
		waiting:   make(map[MediaElement]struct{}),
		buffered:  make(map[MediaElement]float64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.loop()
	return e
}

// Close stops the drift-correction loop. Safe to call more than once.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.done) })
}

// Register appends the element to the registry. The first registered element
// becomes the timing master for the session.
func (e *Engine) Register(el MediaElement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.elements {
		if existing == el {
			return
		}
	}
	e.elements = append(e.elements, el)
	e.log.Debug("element registered",
		slog.String("element", el.ID()),
		slog.Bool("master", len(e.elements) == 1))
}

// Unregister removes the element and clears its waiting and buffer entries.
// If the removed element was the master, the next registered element becomes
// master implicitly; mastery is positional, not a stored flag.
func (e *Engine) Unregister(el MediaElement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, existing := range e.elements {
		if existing == el {
			e.elements = append(e.elements[:i], e.elements[i+1:]...)
			break
		}
	}
	delete(e.waiting, el)
	delete(e.buffered, el)
	e.setWaitingGauge()
	e.log.Debug("element unregistered", slog.String("element", el.ID()))
}

// IsMaster reports whether el occupies registry position 0.
func (e *Engine) IsMaster(el MediaElement) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.elements) > 0 && e.elements[0] == el
}

// OnReady registers a callback invoked every time the group transitions from
// waiting to fully ready. If once is true the callback is removed after its
// first invocation. Callbacks run in registration order.
func (e *Engine) OnReady(fn func(), once bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = append(e.ready, readyCallback{fn: fn, once: once})
}

// Elements returns the IDs of all registered elements in registry order.
// The master, if any, is first.
func (e *Engine) Elements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.elements))
	for _, el := range e.elements {
		ids = append(ids, el.ID())
	}
	return ids
}

// WaitingCount returns the number of elements currently stalled.
func (e *Engine) WaitingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.waiting)
}

// Dispatch delivers an element notification to the engine. Events from
// unregistered elements are ignored. Dispatch never fails: malformed events
// (e.g. an element with no buffered ranges yet) carry no new information and
// are dropped.
func (e *Engine) Dispatch(el MediaElement, ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registered(el) {
		return
	}

	switch ev.Type {
	case EventStalled:
		e.markStalled(el)
	case EventSeekRequested:
		e.handleSeek(el, ev.Time)
	case EventBecameReady:
		e.markReady(el)
	case EventTimeProgress:
		e.handleProgress(el, ev.Time)
	case EventBufferProgress:
		e.handleBufferProgress(el)
	case EventEnded:
		e.handleEnded(el)
	case EventDurationKnown:
		e.handleDuration(el, ev.Time)
	}
}

func (e *Engine) registered(el MediaElement) bool {
	for _, existing := range e.elements {
		if existing == el {
			return true
		}
	}
	return false
}

func (e *Engine) master() MediaElement {
	if len(e.elements) == 0 {
		return nil
	}
	return e.elements[0]
}

// markStalled adds el to the waiting set and publishes WAITING. The play
// state observed when the first element stalls is backed up so the prior
// intent (playing vs paused) can be restored once the group recovers. A
// snapshot taken while the state is already WAITING would corrupt the
// backup, so it is skipped.
func (e *Engine) markStalled(el MediaElement) {
	if _, already := e.waiting[el]; already {
		return
	}
	e.waiting[el] = struct{}{}
	e.setWaitingGauge()
	if e.metrics != nil {
		e.metrics.IncStalls()
	}

	snap := e.store.Snapshot()
	if len(e.waiting) == 1 && snap.PlayState != StateWaiting {
		state := snap.PlayState
		e.backup = &state
	}
	if snap.PlayState != StateFinished {
		e.store.SetPlayState(StateWaiting, false)
	}

	e.log.Debug("element stalled",
		slog.String("element", el.ID()),
		slog.Int("waiting", len(e.waiting)))
}

// handleSeek checks whether the seek target is already buffered. A seek into
// a buffered region resolves without a stall; a seek into an unbuffered
// region is indistinguishable from buffering and is treated as a stall.
func (e *Engine) handleSeek(el MediaElement, target float64) {
	for _, r := range el.Buffered() {
		if r.Contains(target) {
			return
		}
	}
	e.markStalled(el)
}

// markReady removes el from the waiting set. When the set empties, the
// backed-up play state is restored and the ready callbacks fire. The restore
// only happens if the store still reads WAITING: an intentional state change
// made meanwhile (e.g. a user pause) must not be overridden. The backup is
// cleared either way.
func (e *Engine) markReady(el MediaElement) {
	if _, ok := e.waiting[el]; !ok {
		return
	}
	delete(e.waiting, el)
	e.setWaitingGauge()

	if len(e.waiting) > 0 {
		return
	}

	if e.backup != nil {
		if e.store.Snapshot().PlayState == StateWaiting {
			e.store.SetPlayState(*e.backup, false)
		}
		e.backup = nil
	}
	if e.metrics != nil {
		e.metrics.IncReadyTransitions()
	}
	e.log.Debug("all elements ready", slog.String("element", el.ID()))

	e.fireReady()
}

// fireReady invokes the registered ready callbacks in registration order and
// drops the once-only ones. Callbacks run under the engine lock; they must
// not call back into the engine.
func (e *Engine) fireReady() {
	kept := e.ready[:0]
	for _, cb := range e.ready {
		cb.fn()
		if !cb.once {
			kept = append(kept, cb)
		}
	}
	e.ready = kept
}

// handleProgress publishes the master's position, clamped into the trim
// window. A clamped position is published as a seek-tagged write since it is
// a jump, not continuous progress. Progress from slaves, or while any
// element is waiting, is ignored.
func (e *Engine) handleProgress(el MediaElement, pos float64) {
	if el != e.master() || len(e.waiting) > 0 {
		return
	}

	snap := e.store.Snapshot()
	if snap.TrimStart > 0 && pos < snap.TrimStart {
		e.store.SetPosition(snap.TrimStart, true)
		return
	}
	if snap.TrimEnd > 0 && pos > snap.TrimEnd {
		e.store.SetPosition(snap.TrimEnd, true)
		return
	}
	e.store.SetPosition(pos, false)
}

// handleEnded publishes FINISHED for the master. Some streaming backends do
// not fire progress events reliably at end of stream, so end of stream is
// propagated explicitly.
func (e *Engine) handleEnded(el MediaElement) {
	if el != e.master() || len(e.waiting) > 0 {
		return
	}
	e.store.SetPlayState(StateFinished, false)
	e.log.Info("stream finished", slog.String("element", el.ID()))
}

func (e *Engine) handleDuration(el MediaElement, d float64) {
	if el != e.master() {
		return
	}
	e.store.SetDuration(d)
}

// handleBufferProgress records the element's buffered frontier: the end of
// the last buffered range starting at or before the element's position.
// Ranges are time-ordered, so the scan runs newest to oldest. The published
// aggregate is the minimum frontier across all reporting elements, i.e. the
// point up to which every element can play without stalling.
func (e *Engine) handleBufferProgress(el MediaElement) {
	ranges := el.Buffered()
	if len(ranges) == 0 {
		return
	}

	pos := el.Position()
	for i := len(ranges) - 1; i >= 0; i-- {
		if ranges[i].Start <= pos {
			e.buffered[el] = ranges[i].End
			break
		}
	}

	agg := math.Inf(1)
	for _, end := range e.buffered {
		if end < agg {
			agg = end
		}
	}
	if math.IsInf(agg, 1) {
		return
	}
	e.store.SetBufferPosition(agg)
	if e.metrics != nil {
		e.metrics.SetBufferPosition(agg)
	}
}

func (e *Engine) loop() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick runs one round of drift correction. Nothing is corrected while any
// element is waiting, or for live streams, whose elements naturally track a
// moving broadcast edge. While paused any numeric mismatch is corrected
// instantly; there is no continuity to protect. While playing, a slave is
// corrected only past the drift threshold, and transitions through waiting
// first because an abrupt position jump triggers the element's own
// stall/ready cycle.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.waiting) > 0 || len(e.elements) < 2 {
		return
	}
	snap := e.store.Snapshot()
	if snap.Live {
		return
	}

	m := e.elements[0].Position()
	for _, slave := range e.elements[1:] {
		s := slave.Position()
		if snap.PlayState == StatePaused {
			if s != m {
				slave.SetPosition(m)
				e.recordCorrection(slave, s, m)
			}
			continue
		}
		if math.Abs(s-m) > e.threshold {
			e.markStalled(slave)
			slave.SetPosition(m)
			e.recordCorrection(slave, s, m)
		}
	}
}

func (e *Engine) recordCorrection(el MediaElement, from, to float64) {
	if e.metrics != nil {
		e.metrics.IncDriftCorrections()
	}
	e.log.Debug("drift corrected",
		slog.String("element", el.ID()),
		slog.Float64("from", from),
		slog.Float64("to", to))
}

func (e *Engine) setWaitingGauge() {
	if e.metrics != nil {
		e.metrics.SetWaitingElements(len(e.waiting))
	}
}
