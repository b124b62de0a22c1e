package input

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
)

func newTestSource(opts ...Option) *Source {
	return New(tcell.NewSimulationScreen("UTF-8"), event.New(), opts...)
}

func TestConvertKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want string
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone), "w"},
		{"upper rune", tcell.NewEventKey(tcell.KeyRune, 'W', tcell.ModNone), "w"},
		{"space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "space"},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), "alt-x"},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "escape"},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "enter"},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), "up"},
		{"function", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), "f5"},
		{"ctrl letter", tcell.NewEventKey(tcell.KeyCtrlS, 0, tcell.ModCtrl), "ctrl-s"},
		{"ctrl letter without mask", tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModNone), "ctrl-z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertKey(tt.ev).Name())
		})
	}
}

func TestConvert_QuitKeys(t *testing.T) {
	s := newTestSource()

	out := s.convert(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	require.Len(t, out, 2)
	assert.IsType(t, &events.KeyPressed{}, out[0])
	quit, ok := out[1].(*events.QuitRequested)
	require.True(t, ok)
	assert.Equal(t, "ctrl-c", quit.Reason)

	assert.Len(t, s.convert(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)), 1)
}

func TestConvert_Resize(t *testing.T) {
	s := newTestSource()
	out := s.convert(tcell.NewEventResize(120, 40))
	require.Len(t, out, 1)
	assert.Equal(t, &events.WindowResized{Width: 120, Height: 40}, out[0])
}

func TestConvert_Focus(t *testing.T) {
	s := newTestSource()
	out := s.convert(tcell.NewEventFocus(false))
	require.Len(t, out, 1)
	assert.Equal(t, &events.WindowFocusChanged{Focused: false}, out[0])
}

func TestConvert_MouseClick(t *testing.T) {
	s := newTestSource()

	out := s.convert(tcell.NewEventMouse(3, 4, tcell.Button1, tcell.ModShift))
	require.Len(t, out, 1)
	click, ok := out[0].(*events.MouseClicked)
	require.True(t, ok)
	assert.Equal(t, 3, click.X)
	assert.Equal(t, 4, click.Y)
	assert.Equal(t, events.MouseButtonLeft, click.Button)
	assert.Equal(t, []events.Modifier{events.ModifierShift}, click.Mods)

	// Holding the button while moving is not a new click.
	assert.Empty(t, s.convert(tcell.NewEventMouse(5, 4, tcell.Button1, tcell.ModNone)))

	// Release, then a right click.
	s.convert(tcell.NewEventMouse(5, 4, tcell.ButtonNone, tcell.ModNone))
	out = s.convert(tcell.NewEventMouse(5, 4, tcell.Button3, tcell.ModNone))
	require.Len(t, out, 1)
	assert.Equal(t, events.MouseButtonRight, out[0].(*events.MouseClicked).Button)
}

func TestConvert_MouseWheel(t *testing.T) {
	s := newTestSource()
	out := s.convert(tcell.NewEventMouse(1, 1, tcell.WheelDown, tcell.ModNone))
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].(*events.MouseScrolled).DeltaY)
}

func TestConvert_MouseMoveRateLimited(t *testing.T) {
	s := newTestSource(WithMouseMoveRate(0.001))

	first := s.convert(tcell.NewEventMouse(1, 1, tcell.ButtonNone, tcell.ModNone))
	require.Len(t, first, 1)
	assert.IsType(t, &events.MouseMoved{}, first[0])

	assert.Empty(t, s.convert(tcell.NewEventMouse(2, 2, tcell.ButtonNone, tcell.ModNone)))

	unlimited := newTestSource(WithMouseMoveRate(0))
	for i := 0; i < 5; i++ {
		assert.Len(t, unlimited.convert(tcell.NewEventMouse(i, i, tcell.ButtonNone, tcell.ModNone)), 1)
	}
}

func TestRun_QueuesEvents(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	bus := event.New()

	var kinds []event.Kind
	observed := make(chan event.Kind, 16)
	src := New(screen, bus, WithObserver(func(k event.Kind) { observed <- k }))
	require.NoError(t, src.Init())

	var got []string
	event.On(bus, events.KindKeyPressed, func(e *events.KeyPressed) error {
		got = append(got, e.Name())
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)

	deadline := time.After(5 * time.Second)
	for !containsKind(kinds, events.KindKeyPressed) {
		select {
		case k := <-observed:
			kinds = append(kinds, k)
		case <-deadline:
			t.Fatalf("timed out waiting for key event, saw %v", kinds)
		}
	}
	assert.Contains(t, kinds, events.KindWindowResized, "initial size is announced")
	assert.Empty(t, got, "events are queued, not triggered")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	require.NoError(t, bus.Dispatch())
	assert.Equal(t, []string{"w"}, got)
}

func TestRun_ReleasesIdleKeys(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	bus := event.New()

	observed := make(chan event.Kind, 16)
	src := New(screen, bus,
		WithKeyRelease(20*time.Millisecond),
		WithObserver(func(k event.Kind) { observed <- k }))
	require.NoError(t, src.Init())

	var names []string
	event.On(bus, events.KindKeyPressed, func(e *events.KeyPressed) error {
		names = append(names, e.Name())
		return nil
	})
	event.On(bus, events.KindKeyReleased, func(e *events.KeyReleased) error {
		names = append(names, e.Name())
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)

	deadline := time.After(5 * time.Second)
	for released := false; !released; {
		select {
		case k := <-observed:
			released = k == events.KindKeyReleased
		case <-deadline:
			t.Fatal("timed out waiting for key release")
		}
	}

	require.NoError(t, bus.Dispatch())
	assert.Equal(t, []string{"w", "w-up"}, names)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHold_RepeatsDelayRelease(t *testing.T) {
	bus := event.New()
	src := New(tcell.NewSimulationScreen("UTF-8"), bus, WithKeyRelease(200*time.Millisecond))
	key := &events.KeyPressed{Key: "w", Rune: 'w'}

	for i := 0; i < 10; i++ {
		src.hold(key)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Zero(t, bus.Pending(), "repeating key must stay held")

	require.Eventually(t, func() bool { return bus.Pending() == 1 }, 5*time.Second, 5*time.Millisecond)

	var got *events.KeyReleased
	event.On(bus, events.KindKeyReleased, func(e *events.KeyReleased) error {
		got = e
		return nil
	})
	require.NoError(t, bus.Dispatch())
	require.NotNil(t, got)
	assert.Equal(t, "w-up", got.Name())
}

func TestHold_Disabled(t *testing.T) {
	bus := event.New()
	src := New(tcell.NewSimulationScreen("UTF-8"), bus, WithKeyRelease(0))
	src.hold(&events.KeyPressed{Key: "w", Rune: 'w'})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, bus.Pending())
	assert.Empty(t, src.held)
}

func TestClose_DropsPendingReleases(t *testing.T) {
	bus := event.New()
	src := New(tcell.NewSimulationScreen("UTF-8"), bus, WithKeyRelease(20*time.Millisecond))
	require.NoError(t, src.Init())
	src.hold(&events.KeyPressed{Key: "w", Rune: 'w'})
	src.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, bus.Pending())
}

func TestRun_AfterClose(t *testing.T) {
	src := newTestSource()
	require.NoError(t, src.Init())
	src.Close()
	assert.ErrorIs(t, src.Run(context.Background()), ErrClosed)
}

func containsKind(kinds []event.Kind, k event.Kind) bool {
	for _, have := range kinds {
		if have == k {
			return true
		}
	}
	return false
}
