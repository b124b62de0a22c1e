// Package input turns terminal input into bus events.
//
// A Source polls a tcell screen on its own goroutine and queues the
// converted events, so handlers run when the frame loop drains the queue
// rather than on the polling goroutine.
//
// Terminals report key presses and repeats but no key-up. A Source reports
// KeyReleased once a held key has gone a release delay without repeating.
package input

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("input source is closed")

// DefaultKeyRelease is the release delay used unless WithKeyRelease is given.
// It outlasts the usual terminal auto-repeat delay.
const DefaultKeyRelease = 500 * time.Millisecond

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the source logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

// WithMouse enables mouse reporting.
func WithMouse(enabled bool) Option {
	return func(s *Source) {
		s.mouse = enabled
	}
}

// WithMouseMoveRate caps MouseMoved events per second. Zero disables the cap.
func WithMouseMoveRate(perSecond float64) Option {
	return func(s *Source) {
		if perSecond > 0 {
			s.moveLimiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.moveLimiter = nil
		}
	}
}

// WithKeyRelease sets how long a key must go without repeating before
// KeyReleased is queued. Zero disables release events.
func WithKeyRelease(d time.Duration) Option {
	return func(s *Source) {
		s.keyRelease = max(d, 0)
	}
}

// WithObserver registers a callback invoked with the kind of every queued event.
func WithObserver(fn func(event.Kind)) Option {
	return func(s *Source) {
		s.observe = fn
	}
}

// Source reads a tcell screen and queues events on a bus.
type Source struct {
	screen      tcell.Screen
	bus         *event.Bus
	log         zerolog.Logger
	mouse       bool
	moveLimiter *rate.Limiter
	observe     func(event.Kind)
	keyRelease  time.Duration

	buttons tcell.ButtonMask

	heldMu sync.Mutex
	held   map[string]*heldKey

	initOnce sync.Once
	initErr  error
	finiOnce sync.Once
	mu       sync.Mutex
	closed   bool
}

// New creates a source reading screen. The screen is initialised by Init.
func New(screen tcell.Screen, bus *event.Bus, opts ...Option) *Source {
	s := &Source{
		screen:     screen,
		bus:        bus,
		log:        zerolog.Nop(),
		keyRelease: DefaultKeyRelease,
		held:       make(map[string]*heldKey),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTerminal creates a source reading the controlling terminal.
func NewTerminal(bus *event.Bus, opts ...Option) (*Source, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return New(screen, bus, opts...), nil
}

// Init initialises the screen. It is safe to call more than once.
func (s *Source) Init() error {
	s.initOnce.Do(func() {
		if err := s.screen.Init(); err != nil {
			s.initErr = err
			return
		}
		if s.mouse {
			s.screen.EnableMouse()
		}
		s.screen.EnableFocus()
	})
	return s.initErr
}

// Size returns the current screen size.
func (s *Source) Size() (int, int) {
	return s.screen.Size()
}

// Run polls events until ctx is cancelled or Close is called.
func (s *Source) Run(ctx context.Context) error {
	if err := s.Init(); err != nil {
		return err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	stop := context.AfterFunc(ctx, s.fini)
	defer stop()

	// Announce the initial size so layouts can settle before the first resize.
	w, h := s.screen.Size()
	s.queue(&events.WindowResized{Width: w, Height: h})

	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return nil
		}
		for _, e := range s.convert(ev) {
			s.queue(e)
			if kp, ok := e.(*events.KeyPressed); ok {
				s.hold(kp)
			}
		}
	}
}

// Close releases the screen and unblocks Run.
func (s *Source) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.fini()
}

func (s *Source) fini() {
	s.finiOnce.Do(func() {
		s.screen.Fini()
		s.dropHeld()
	})
}

// heldKey is a key that was pressed and has not been released yet.
type heldKey struct {
	key   string
	mods  []events.Modifier
	timer *time.Timer
}

// hold starts or extends the release timer of a pressed key.
func (s *Source) hold(e *events.KeyPressed) {
	if s.keyRelease <= 0 {
		return
	}
	name := e.Name()

	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	if s.held == nil {
		return
	}
	if h, ok := s.held[name]; ok && h.timer.Reset(s.keyRelease) {
		return
	}
	// A timer that already fired is superseded: its callback finds the new
	// entry and does nothing.
	h := &heldKey{key: e.Key, mods: e.Mods}
	h.timer = time.AfterFunc(s.keyRelease, func() { s.release(name, h) })
	s.held[name] = h
}

func (s *Source) release(name string, h *heldKey) {
	s.heldMu.Lock()
	if s.held[name] != h {
		s.heldMu.Unlock()
		return
	}
	delete(s.held, name)
	s.heldMu.Unlock()

	s.queue(&events.KeyReleased{Key: h.key, Mods: h.mods})
}

// dropHeld stops pending releases. Keys held at shutdown are not released.
func (s *Source) dropHeld() {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	for _, h := range s.held {
		h.timer.Stop()
	}
	s.held = nil
}

func (s *Source) queue(e event.Event) {
	if err := s.bus.Queue(e); err != nil {
		s.log.Warn().Err(err).Str("kind", string(e.Kind())).Msg("dropping input event")
		return
	}
	if s.observe != nil {
		s.observe(e.Kind())
	}
}

// convert maps one tcell event to zero or more bus events.
func (s *Source) convert(ev tcell.Event) []event.Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		key := convertKey(e)
		out := []event.Event{key}
		if isQuitKey(e) {
			out = append(out, &events.QuitRequested{Reason: key.Name()})
		}
		return out

	case *tcell.EventMouse:
		return s.convertMouse(e)

	case *tcell.EventResize:
		w, h := e.Size()
		return []event.Event{&events.WindowResized{Width: w, Height: h}}

	case *tcell.EventFocus:
		return []event.Event{&events.WindowFocusChanged{Focused: e.Focused}}

	default:
		return nil
	}
}

func (s *Source) convertMouse(e *tcell.EventMouse) []event.Event {
	x, y := e.Position()
	buttons := e.Buttons()
	mods := convertMods(e.Modifiers())

	var out []event.Event
	switch {
	case buttons&tcell.WheelUp != 0:
		out = append(out, &events.MouseScrolled{X: x, Y: y, DeltaY: -1})
	case buttons&tcell.WheelDown != 0:
		out = append(out, &events.MouseScrolled{X: x, Y: y, DeltaY: 1})
	case buttons&tcell.WheelLeft != 0:
		out = append(out, &events.MouseScrolled{X: x, Y: y, DeltaX: -1})
	case buttons&tcell.WheelRight != 0:
		out = append(out, &events.MouseScrolled{X: x, Y: y, DeltaX: 1})
	}

	pressed := buttons &^ s.buttons
	s.buttons = buttons & (tcell.Button1 | tcell.Button2 | tcell.Button3)

	for _, b := range []struct {
		mask   tcell.ButtonMask
		button events.MouseButton
	}{
		{tcell.Button1, events.MouseButtonLeft},
		{tcell.Button2, events.MouseButtonMiddle},
		{tcell.Button3, events.MouseButtonRight},
	} {
		if pressed&b.mask != 0 {
			out = append(out, &events.MouseClicked{X: x, Y: y, Button: b.button, Mods: mods})
		}
	}

	if len(out) == 0 && buttons == tcell.ButtonNone {
		if s.moveLimiter == nil || s.moveLimiter.Allow() {
			out = append(out, &events.MouseMoved{X: x, Y: y})
		}
	}
	return out
}

func isQuitKey(e *tcell.EventKey) bool {
	return e.Key() == tcell.KeyCtrlC || e.Key() == tcell.KeyCtrlQ
}
