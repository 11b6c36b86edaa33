package metronome

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	uuid "github.com/nu7hatch/gouuid"
	"go.uber.org/zap"

	"metronome/internal/telemetry"
)

const defaultCommandBuffer = 10

// MemberID identifies a registered member. Ids are assigned sequentially
// starting at 0 and are never reused, even after unregistration.
type MemberID uint64

// Config carries the optional knobs for a Manager. Only Speed is required.
type Config struct {
	// Speed sets the cadence of the coordination loop.
	Speed Speed

	// Clock supplies time to the loop; defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// CommandBuffer bounds the command queue; defaults to 10.
	CommandBuffer int
}

type memberRecord struct {
	speedFactor int
	state       MemberState
	replies     chan<- reply
	lastTick    time.Time
}

// MemberStatus is one member's entry in a Snapshot.
type MemberStatus struct {
	ID          MemberID    `json:"id"`
	SpeedFactor int         `json:"speed_factor"`
	State       MemberState `json:"state"`
	LastTick    time.Time   `json:"last_tick"`
}

// Snapshot is a point-in-time copy of a manager's registry, ordered by
// member id.
type Snapshot struct {
	Manager  string         `json:"manager"`
	Step     uint64         `json:"step"`
	LastStep time.Time      `json:"last_step"`
	Members  []MemberStatus `json:"members"`
}

/*
A Manager owns one coordination loop. The loop is the sole owner of the
member registry: registration, state changes and unregistration arrive as
commands over a bounded queue and are applied in arrival order, so no
other synchronization exists or is needed.

Each Manager is independent; create as many as you like.
*/
type Manager struct {
	id     string
	speed  Speed
	clock  clock.Clock
	logger *zap.Logger

	commands chan command
	exited   chan struct{}

	// owned exclusively by the loop goroutine
	members  map[MemberID]*memberRecord
	nextID   MemberID
	step     uint64
	lastStep time.Time

	stopOnce sync.Once
}

// New creates a Manager with the given cadence and starts its coordination
// loop. The returned Handle is safe to copy across goroutines.
func New(speed Speed) (*Manager, Handle) {
	return NewWithConfig(Config{Speed: speed})
}

// NewWithConfig is New with the full set of knobs.
func NewWithConfig(cfg Config) (*Manager, Handle) {
	m := newManager(cfg)
	m.start()
	return m, m.Handle()
}

func newManager(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = defaultCommandBuffer
	}

	id := "unknown"
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}

	return &Manager{
		id:       id,
		speed:    cfg.Speed,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With(zap.String("manager", id)),
		commands: make(chan command, cfg.CommandBuffer),
		exited:   make(chan struct{}),
		members:  make(map[MemberID]*memberRecord),
	}
}

// ID returns the instance identifier used in logs, metrics and snapshots.
func (m *Manager) ID() string {
	return m.id
}

// Handle returns a shareable capability for submitting commands to the
// coordination loop.
func (m *Manager) Handle() Handle {
	return Handle{commands: m.commands, exited: m.exited}
}

/*
Stop shuts the coordination loop down and waits for it to exit. Commands
still queued behind the shutdown are discarded. Stop is idempotent and
safe to call from multiple goroutines.
*/
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		select {
		case m.commands <- shutdownCommand{}:
		case <-m.exited:
		}
	})
	<-m.exited
}

func (m *Manager) start() {
	m.lastStep = m.clock.Now()
	go m.loop()
}

// pollInterval bounds how stale the cadence check may get while no
// commands are arriving.
func (m *Manager) pollInterval() time.Duration {
	p := m.speed.Period() / 4
	if p < 100*time.Microsecond {
		p = 100 * time.Microsecond
	}
	if p > 10*time.Millisecond {
		p = 10 * time.Millisecond
	}
	return p
}

/*
loop is the coordination loop. It parks on command arrival or the poll
ticker instead of spinning: member readiness only ever changes via a
command, so every event that could open the gate wakes the loop, and the
ticker covers the passage of wall-clock time.
*/
func (m *Manager) loop() {
	defer close(m.exited)

	ticker := m.clock.Ticker(m.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case cmd := <-m.commands:
			if m.apply(cmd) {
				return
			}
		case <-ticker.C:
		}
		if m.drain() {
			return
		}
		m.attemptStep()
	}
}

// drain applies every queued command in arrival order without blocking,
// reporting true the moment a shutdown is dequeued.
func (m *Manager) drain() bool {
	for {
		select {
		case cmd := <-m.commands:
			if m.apply(cmd) {
				return true
			}
		default:
			return false
		}
	}
}

// apply mutates the registry for a single command, reporting true on
// shutdown.
func (m *Manager) apply(cmd command) bool {
	switch c := cmd.(type) {
	case registerCommand:
		m.register(c)

	case setStateCommand:
		if rec, ok := m.members[c.id]; ok {
			rec.state = c.state
		}

	case unregisterCommand:
		if _, ok := m.members[c.id]; ok {
			delete(m.members, c.id)
			telemetry.Members.WithLabelValues(m.id).Set(float64(len(m.members)))
			m.logger.Debug("member unregistered", zap.Uint64("member", uint64(c.id)))
		}

	case snapshotCommand:
		c.result <- m.snapshot()

	case shutdownCommand:
		m.logger.Debug("shutting down")
		return true
	}
	return false
}

func (m *Manager) register(c registerCommand) {
	factor := c.speedFactor
	if factor < 1 {
		factor = 1
	}
	id := m.nextID
	m.nextID++
	m.members[id] = &memberRecord{
		speedFactor: factor,
		state:       StateRunning,
		replies:     c.replies,
		lastTick:    m.clock.Now(),
	}
	sendReply(c.replies, reply{kind: replySelfID, id: id})
	telemetry.Members.WithLabelValues(m.id).Set(float64(len(m.members)))
	m.logger.Debug("member registered",
		zap.Uint64("member", uint64(id)),
		zap.Int("speed_factor", factor))
}

/*
attemptStep commits one cadence step if the period has elapsed and every
member due on the candidate step is ready. A due member still running
holds everything back: neither the counter nor the last-step time move, so
the step fires the instant the straggler declares readiness instead of
waiting out another full period. An empty due set still commits the step,
otherwise the counter could never reach the multiples of a larger speed
factor.
*/
func (m *Manager) attemptStep() {
	now := m.clock.Now()
	if !m.speed.StepDue(m.lastStep, now) {
		return
	}

	next := m.step + 1 // wraps; due-ness only ever looks at next % factor

	var due []MemberID
	for id, rec := range m.members {
		if next%uint64(rec.speedFactor) != 0 {
			continue
		}
		if !rec.state.ready() {
			// A correctly-behaving member declares itself before its
			// tick comes due; tolerate the ones that don't.
			telemetry.GateBlocked.WithLabelValues(m.id).Inc()
			m.logger.Debug("due member not ready",
				zap.Uint64("member", uint64(id)),
				zap.Uint64("step", next))
			return
		}
		due = append(due, id)
	}

	telemetry.StepsTotal.WithLabelValues(m.id).Inc()
	telemetry.StepInterval.WithLabelValues(m.id).Observe(now.Sub(m.lastStep).Seconds())
	m.step = next
	m.lastStep = now

	for _, id := range due {
		rec := m.members[id]
		if rec.state == StateFinished {
			rec.state = StateRunning
		}
		rec.lastTick = now
		if sendReply(rec.replies, reply{kind: replyTick, step: next}) {
			telemetry.TicksDelivered.WithLabelValues(m.id).Inc()
		} else {
			telemetry.TicksDropped.WithLabelValues(m.id).Inc()
		}
	}
}

func (m *Manager) snapshot() Snapshot {
	members := make([]MemberStatus, 0, len(m.members))
	for id, rec := range m.members {
		members = append(members, MemberStatus{
			ID:          id,
			SpeedFactor: rec.speedFactor,
			State:       rec.state,
			LastTick:    rec.lastTick,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return Snapshot{
		Manager:  m.id,
		Step:     m.step,
		LastStep: m.lastStep,
		Members:  members,
	}
}

// sendReply never blocks the loop; a full or abandoned channel loses the
// message.
func sendReply(ch chan<- reply, r reply) bool {
	select {
	case ch <- r:
		return true
	default:
		return false
	}
}
