package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/shared"
)

// DefaultLeadIn delays the first event so the voice pool is ready before notes start.
const DefaultLeadIn = 100 * time.Millisecond

// State is the player's playback state.
type State int

const (
	Idle State = iota
	Playing
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	default:
		return ""
	}
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The player's schedule is computed against one clock so all events share a time base.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock schedules with [time.AfterFunc].
var SystemClock Clock = systemClock{}

// Player owns the schedule of note events against a single shared [VoicePool].
//
// Play on a playing player stops it instead of starting a second schedule.
// Play while a stop is in progress does nothing.
type Player struct {
	clock  Clock
	voices VoicePool
	leadIn time.Duration
	logger *log.Logger

	mu        sync.Mutex
	state     State
	events    []NoteEvent
	timers    []Timer
	gen       uint64
	remaining int
	listeners []func(State)
}

// NewPlayer creates an idle player. A negative leadIn means [DefaultLeadIn].
func NewPlayer(clock Clock, voices VoicePool, leadIn time.Duration, logger *log.Logger) *Player {
	if clock == nil {
		clock = SystemClock
	}
	if voices == nil {
		voices = NewVoices(nil)
	}
	if leadIn < 0 {
		leadIn = DefaultLeadIn
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Player{clock: clock, voices: voices, leadIn: leadIn, logger: logger}
}

// OnStateChange registers fn to be called after every state transition, outside the player's lock.
func (p *Player) OnStateChange(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Loaded reports whether there is anything to play.
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events) > 0
}

// Load stops any playback and replaces the events.
func (p *Player) Load(events []NoteEvent) {
	p.Stop()
	p.mu.Lock()
	p.events = events
	p.mu.Unlock()
}

// Play starts playback from the beginning, or stops it when already playing.
func (p *Player) Play() error {
	p.mu.Lock()
	switch p.state {
	case Stopping:
		p.mu.Unlock()
		return nil
	case Playing:
		p.mu.Unlock()
		p.Stop()
		return nil
	}

	if len(p.events) == 0 {
		p.mu.Unlock()
		return shared.ErrNothingToPlay
	}

	p.gen++
	gen := p.gen
	p.remaining = len(p.events)
	p.timers = make([]Timer, 0, len(p.events))
	for _, ev := range p.events {
		p.timers = append(p.timers, p.clock.AfterFunc(p.leadIn+ev.At, func() { p.fire(gen, ev) }))
	}
	p.state = Playing
	listeners := p.listeners
	count := len(p.events)
	p.mu.Unlock()

	p.logger.Debug("playback started", "events", count, "lead_in", p.leadIn)
	p.notify(listeners, Playing)
	return nil
}

// Toggle is [Player.Play]; it exists for call sites that read better as a toggle.
func (p *Player) Toggle() error { return p.Play() }

// Stop cancels pending events and releases held voices. Stopping an idle player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state != Playing {
		p.mu.Unlock()
		return
	}
	p.state = Stopping
	p.gen++
	timers := p.timers
	p.timers = nil
	listeners := p.listeners
	p.mu.Unlock()

	p.notify(listeners, Stopping)

	for _, t := range timers {
		t.Stop()
	}
	p.voices.ReleaseAll()

	p.mu.Lock()
	p.state = Idle
	p.mu.Unlock()

	p.logger.Debug("playback stopped")
	p.notify(listeners, Idle)
}

func (p *Player) fire(gen uint64, ev NoteEvent) {
	p.mu.Lock()
	if gen != p.gen || p.state != Playing {
		p.mu.Unlock()
		return
	}

	if ev.On {
		p.voices.NoteOn(ev.Channel, ev.Key, ev.Velocity)
	} else {
		p.voices.NoteOff(ev.Channel, ev.Key)
	}

	p.remaining--
	finished := p.remaining == 0
	if finished {
		p.voices.ReleaseAll()
		p.state = Idle
		p.timers = nil
	}
	listeners := p.listeners
	p.mu.Unlock()

	if finished {
		p.logger.Debug("playback finished")
		p.notify(listeners, Idle)
	}
}

func (p *Player) notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}
