package event

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

const (
	kindResized Kind = "window.resized"
	kindKey     Kind = "input.key.pressed"
)

type resized struct {
	Base
	Width, Height int
}

func (*resized) Kind() Kind { return kindResized }

type keyPressed struct {
	Base
	Key string
}

func (*keyPressed) Kind() Kind { return kindKey }

// bareEvent implements Event without embedding Base.
type bareEvent struct {
	stopped bool
}

func (*bareEvent) Kind() Kind                   { return "bare.event" }
func (e *bareEvent) StopPropagation()           { e.stopped = true }
func (e *bareEvent) IsPropagationStopped() bool { return e.stopped }

// recorder is a comparable handler.
type recorder struct {
	mu   sync.Mutex
	seen []Event
}

func (r *recorder) Handle(e Event) error {
	r.mu.Lock()
	r.seen = append(r.seen, e)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func mustSubscribe(t *testing.T, b *Bus, kind Kind, h Handler) Token {
	t.Helper()
	tok, err := b.Subscribe(kind, h)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	return tok
}

func TestNew(t *testing.T) {
	b := New()
	if b == nil {
		t.Fatal("New() returned nil")
	}
	if b.Pending() != 0 {
		t.Errorf("expected empty queue, got %d", b.Pending())
	}
	if len(b.Kinds()) != 0 {
		t.Errorf("expected no kinds, got %v", b.Kinds())
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	b := New()

	if _, err := b.Subscribe(kindResized, nil); err != ErrNilHandler {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if _, err := b.SubscribeFunc(kindResized, nil); err != ErrNilHandler {
		t.Errorf("expected ErrNilHandler for nil func, got %v", err)
	}
	for _, kind := range []Kind{"", ".a", "a.", "a..b", "a b"} {
		if _, err := b.Subscribe(kind, &recorder{}); err != ErrInvalidKind {
			t.Errorf("Subscribe(%q): expected ErrInvalidKind, got %v", kind, err)
		}
	}
}

func TestBus_TriggerDeliversToSubscriber(t *testing.T) {
	b := New()

	var got *resized
	_, err := On(b, kindResized, func(e *resized) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("On() failed: %v", err)
	}

	ev := &resized{Width: 1024, Height: 768}
	if err := b.Trigger(ev); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}
	if got != ev {
		t.Fatalf("handler received %v, want the triggered event", got)
	}
	if got.Width != 1024 || got.Height != 768 {
		t.Errorf("unexpected payload %dx%d", got.Width, got.Height)
	}
}

func TestBus_TriggerWithoutSubscribers(t *testing.T) {
	b := New()
	if err := b.Trigger(&resized{}); err != nil {
		t.Errorf("expected nil error with no subscribers, got %v", err)
	}
}

func TestBus_InvalidEvent(t *testing.T) {
	b := New()

	if err := b.Trigger(nil); err != ErrInvalidEvent {
		t.Errorf("Trigger(nil): expected ErrInvalidEvent, got %v", err)
	}
	if err := b.Queue(nil); err != ErrInvalidEvent {
		t.Errorf("Queue(nil): expected ErrInvalidEvent, got %v", err)
	}
	if err := b.Trigger(&customKind{kind: "bad..kind"}); err != ErrInvalidEvent {
		t.Errorf("invalid kind: expected ErrInvalidEvent, got %v", err)
	}
	if b.Pending() != 0 {
		t.Errorf("rejected events must not be queued, Pending() = %d", b.Pending())
	}
}

type customKind struct {
	Base
	kind Kind
}

func (e *customKind) Kind() Kind { return e.kind }

func TestBus_Unsubscribe(t *testing.T) {
	b := New()
	r := &recorder{}
	tok := mustSubscribe(t, b, kindResized, r)

	if !b.Unsubscribe(kindResized, tok) {
		t.Fatal("expected Unsubscribe() to report removal")
	}
	if err := b.Trigger(&resized{}); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}
	if r.count() != 0 {
		t.Errorf("unsubscribed handler ran %d times", r.count())
	}

	// Repeated and unknown removals are silent no-ops.
	if b.Unsubscribe(kindResized, tok) {
		t.Error("second Unsubscribe() should report false")
	}
	if b.Unsubscribe(kindResized, Token{}) {
		t.Error("zero token should not match")
	}
	if b.Unsubscribe("never.subscribed", newToken()) {
		t.Error("unknown kind should not match")
	}
}

func TestBus_UnsubscribeWrongKind(t *testing.T) {
	b := New()
	r := &recorder{}
	tok := mustSubscribe(t, b, kindResized, r)

	if b.Unsubscribe(kindKey, tok) {
		t.Fatal("token removed under the wrong kind")
	}
	b.Trigger(&resized{})
	if r.count() != 1 {
		t.Errorf("expected subscription to survive, handler ran %d times", r.count())
	}
}

func TestBus_SubscriptionOrder(t *testing.T) {
	b := New()

	var order []int
	for i := 1; i <= 5; i++ {
		_, err := b.SubscribeFunc(kindResized, func(Event) error {
			order = append(order, i)
			return nil
		})
		if err != nil {
			t.Fatalf("SubscribeFunc() failed: %v", err)
		}
	}

	b.Trigger(&resized{})
	want := []int{1, 2, 3, 4, 5}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBus_DuplicateSubscriptionsAreIndependent(t *testing.T) {
	b := New()
	r := &recorder{}
	first := mustSubscribe(t, b, kindResized, r)
	second := mustSubscribe(t, b, kindResized, r)

	if first == second {
		t.Fatal("expected distinct tokens")
	}
	b.Trigger(&resized{})
	if r.count() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", r.count())
	}

	b.Unsubscribe(kindResized, first)
	b.Trigger(&resized{})
	if r.count() != 3 {
		t.Errorf("expected 3 deliveries after removing one, got %d", r.count())
	}
}

func TestBus_StopPropagation(t *testing.T) {
	b := New()

	var calls []string
	b.SubscribeFunc(kindResized, func(e Event) error {
		calls = append(calls, "first")
		return nil
	})
	b.SubscribeFunc(kindResized, func(e Event) error {
		calls = append(calls, "second")
		e.StopPropagation()
		return nil
	})
	b.SubscribeFunc(kindResized, func(e Event) error {
		calls = append(calls, "third")
		return nil
	})

	ev := &resized{}
	if err := b.Trigger(ev); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}
	if fmt.Sprint(calls) != "[first second]" {
		t.Errorf("calls = %v, want [first second]", calls)
	}
	if !ev.IsPropagationStopped() {
		t.Error("expected event to report stopped propagation")
	}

	// A stopped event reaches nobody until propagation is resumed.
	calls = nil
	b.Trigger(ev)
	if len(calls) != 0 {
		t.Errorf("stopped event delivered to %v", calls)
	}
	ev.ResumePropagation()
	b.Trigger(ev)
	if fmt.Sprint(calls) != "[first second]" {
		t.Errorf("after resume calls = %v", calls)
	}
}

func TestBus_StopPropagationWithoutBase(t *testing.T) {
	b := New()

	var n int
	b.SubscribeFunc("bare.event", func(e Event) error {
		n++
		e.StopPropagation()
		return nil
	})
	b.SubscribeFunc("bare.event", func(e Event) error {
		n++
		return nil
	})

	if err := b.Trigger(&bareEvent{}); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 handler call, got %d", n)
	}
}

func TestBus_QueueIsFIFO(t *testing.T) {
	b := New()

	var widths []int
	On(b, kindResized, func(e *resized) error {
		widths = append(widths, e.Width)
		return nil
	})

	for _, w := range []int{1, 2, 3} {
		if err := b.Queue(&resized{Width: w}); err != nil {
			t.Fatalf("Queue() failed: %v", err)
		}
	}
	if len(widths) != 0 {
		t.Fatal("Queue() must not deliver")
	}
	if b.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", b.Pending())
	}

	if err := b.Dispatch(); err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if fmt.Sprint(widths) != "[1 2 3]" {
		t.Errorf("widths = %v, want [1 2 3]", widths)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d after drain", b.Pending())
	}
}

func TestBus_QueueDuringDispatchWaits(t *testing.T) {
	b := New()

	var seen []int
	On(b, kindResized, func(e *resized) error {
		seen = append(seen, e.Width)
		if e.Width < 3 {
			b.Queue(&resized{Width: e.Width + 1})
		}
		return nil
	})

	b.Queue(&resized{Width: 1})
	b.Dispatch()
	if fmt.Sprint(seen) != "[1]" {
		t.Fatalf("first drain saw %v, want [1]", seen)
	}
	if b.Pending() != 1 {
		t.Fatalf("expected the re-queued event to wait, Pending() = %d", b.Pending())
	}

	b.Dispatch()
	b.Dispatch()
	if fmt.Sprint(seen) != "[1 2 3]" {
		t.Errorf("seen = %v, want [1 2 3]", seen)
	}
}

func TestBus_DispatchEmpty(t *testing.T) {
	b := New()
	if err := b.Dispatch(); err != nil {
		t.Errorf("Dispatch() on empty queue: %v", err)
	}
}

func TestBus_KindIsolation(t *testing.T) {
	b := New()
	resizes := &recorder{}
	keys := &recorder{}
	mustSubscribe(t, b, kindResized, resizes)
	mustSubscribe(t, b, kindKey, keys)

	b.Trigger(&keyPressed{Key: "w"})
	b.Queue(&keyPressed{Key: "a"})
	b.Dispatch()

	if resizes.count() != 0 {
		t.Errorf("resize handler received %d key events", resizes.count())
	}
	if keys.count() != 2 {
		t.Errorf("key handler received %d events, want 2", keys.count())
	}
}

func TestBus_ResizeScenario(t *testing.T) {
	b := New()

	var log []string
	tok, err := On(b, kindResized, func(e *resized) error {
		log = append(log, fmt.Sprintf("%dx%d", e.Width, e.Height))
		return nil
	})
	if err != nil {
		t.Fatalf("On() failed: %v", err)
	}

	b.Trigger(&resized{Width: 1024, Height: 768})
	b.Queue(&resized{Width: 800, Height: 600})
	b.Queue(&resized{Width: 1280, Height: 720})
	if len(log) != 1 {
		t.Fatalf("expected only the immediate event before Dispatch, got %v", log)
	}
	b.Dispatch()
	b.Unsubscribe(kindResized, tok)
	b.Trigger(&resized{Width: 1, Height: 1})

	want := "[1024x768 800x600 1280x720]"
	if fmt.Sprint(log) != want {
		t.Errorf("log = %v, want %s", log, want)
	}
}

func TestBus_HandlerErrorAbortsPass(t *testing.T) {
	b := New()
	boom := errors.New("boom")

	failing, _ := b.SubscribeFunc(kindResized, func(Event) error { return boom })
	after := &recorder{}
	mustSubscribe(t, b, kindResized, after)

	err := b.Trigger(&resized{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var herr *HandlerError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HandlerError, got %T", err)
	}
	if herr.Token != failing || herr.Kind != kindResized {
		t.Errorf("unexpected HandlerError fields: %+v", herr)
	}
	if after.count() != 0 {
		t.Error("handler after the failing one must not run")
	}
	if b.Stats().HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", b.Stats().HandlerErrors)
	}
}

func TestBus_HandlerPanicPropagates(t *testing.T) {
	b := New()
	b.SubscribeFunc(kindResized, func(Event) error { panic("handler exploded") })

	defer func() {
		if r := recover(); r != "handler exploded" {
			t.Errorf("expected panic to reach the caller, got %v", r)
		}
	}()
	b.Trigger(&resized{})
	t.Fatal("Trigger() returned after a panicking handler")
}

func TestBus_DispatchRequeuesOnError(t *testing.T) {
	b := New()
	boom := errors.New("boom")

	var seen []int
	On(b, kindResized, func(e *resized) error {
		seen = append(seen, e.Width)
		if e.Width == 2 {
			return boom
		}
		return nil
	})

	b.Queue(&resized{Width: 1})
	b.Queue(&resized{Width: 2})
	b.Queue(&resized{Width: 3})

	if err := b.Dispatch(); !errors.Is(err, boom) {
		t.Fatalf("expected boom from Dispatch(), got %v", err)
	}
	if b.Pending() != 1 {
		t.Fatalf("expected the undelivered tail to be re-queued, Pending() = %d", b.Pending())
	}

	b.Queue(&resized{Width: 4})
	if err := b.Dispatch(); err != nil {
		t.Fatalf("second Dispatch() failed: %v", err)
	}
	if fmt.Sprint(seen) != "[1 2 3 4]" {
		t.Errorf("seen = %v, want [1 2 3 4]", seen)
	}
}

func TestBus_DispatchRequeuesOnPanic(t *testing.T) {
	b := New()
	On(b, kindResized, func(e *resized) error {
		if e.Width == 1 {
			panic("first event")
		}
		return nil
	})

	b.Queue(&resized{Width: 1})
	b.Queue(&resized{Width: 2})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic from Dispatch()")
			}
		}()
		b.Dispatch()
	}()

	if b.Pending() != 1 {
		t.Errorf("Pending() = %d after panic, want 1", b.Pending())
	}
}

func TestBus_SubscribeOnce(t *testing.T) {
	b := New()
	r := &recorder{}
	if _, err := b.SubscribeOnce(kindResized, r); err != nil {
		t.Fatalf("SubscribeOnce() failed: %v", err)
	}

	b.Trigger(&resized{})
	b.Trigger(&resized{})
	if r.count() != 1 {
		t.Errorf("once handler ran %d times", r.count())
	}
	if b.Count(kindResized) != 0 {
		t.Errorf("once subscription not removed, Count() = %d", b.Count(kindResized))
	}
}

func TestBus_UnsubscribeHandler(t *testing.T) {
	b := New()
	r := &recorder{}
	other := &recorder{}
	mustSubscribe(t, b, kindResized, r)
	mustSubscribe(t, b, kindResized, r)
	mustSubscribe(t, b, kindResized, other)

	if n := b.UnsubscribeHandler(kindResized, r); n != 2 {
		t.Fatalf("UnsubscribeHandler() removed %d, want 2", n)
	}
	if n := b.UnsubscribeHandler(kindResized, r); n != 0 {
		t.Errorf("second UnsubscribeHandler() removed %d", n)
	}
	b.Trigger(&resized{})
	if r.count() != 0 || other.count() != 1 {
		t.Errorf("unexpected deliveries: removed=%d other=%d", r.count(), other.count())
	}

	fn := HandlerFunc(func(Event) error { return nil })
	b.Subscribe(kindResized, fn)
	if n := b.UnsubscribeHandler(kindResized, fn); n != 0 {
		t.Errorf("function handlers are not comparable, removed %d", n)
	}
}

// wrapped is a comparable type whose value may hold an uncomparable handler.
type wrapped struct {
	inner Handler
}

func (w wrapped) Handle(e Event) error { return w.inner.Handle(e) }

func TestBus_UnsubscribeHandlerHoldingFunc(t *testing.T) {
	b := New()
	h := wrapped{inner: HandlerFunc(func(Event) error { return nil })}
	b.Subscribe(kindResized, h)

	if n := b.UnsubscribeHandler(kindResized, h); n != 0 {
		t.Errorf("UnsubscribeHandler() removed %d, want 0", n)
	}
	if n := b.Count(kindResized); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	r := &recorder{}
	byValue := wrapped{inner: r}
	b.Subscribe(kindResized, byValue)
	if n := b.UnsubscribeHandler(kindResized, wrapped{inner: r}); n != 1 {
		t.Errorf("UnsubscribeHandler() removed %d, want 1", n)
	}
}

func TestBus_UnsubscribeDuringTrigger(t *testing.T) {
	b := New()
	later := &recorder{}

	var laterTok Token
	b.SubscribeFunc(kindResized, func(Event) error {
		b.Unsubscribe(kindResized, laterTok)
		return nil
	})
	laterTok = mustSubscribe(t, b, kindResized, later)

	if err := b.Trigger(&resized{}); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}
	if later.count() != 0 {
		t.Error("handler removed earlier in the pass must not run")
	}
}

func TestBus_SubscribeDuringTrigger(t *testing.T) {
	b := New()
	added := &recorder{}

	b.SubscribeOnce(kindResized, HandlerFunc(func(Event) error {
		_, err := b.Subscribe(kindResized, added)
		return err
	}))

	if err := b.Trigger(&resized{}); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}
	if added.count() != 0 {
		t.Error("subscription added mid-pass must wait for the next pass")
	}
	b.Trigger(&resized{})
	if added.count() != 1 {
		t.Errorf("expected 1 delivery on the next pass, got %d", added.count())
	}
}

func TestBus_TriggerFromHandler(t *testing.T) {
	b := New()
	keys := &recorder{}
	mustSubscribe(t, b, kindKey, keys)
	b.SubscribeFunc(kindResized, func(Event) error {
		return b.Trigger(&keyPressed{Key: "r"})
	})

	if err := b.Trigger(&resized{}); err != nil {
		t.Fatalf("nested Trigger() failed: %v", err)
	}
	if keys.count() != 1 {
		t.Errorf("nested event delivered %d times", keys.count())
	}
}

func TestBus_MetadataStamped(t *testing.T) {
	b := New(WithSource("tests"))
	ev := &resized{}
	b.Queue(ev)

	meta, ok := MetadataOf(ev)
	if !ok {
		t.Fatal("MetadataOf() should succeed for events embedding Base")
	}
	if meta.ID == "" || meta.Timestamp.IsZero() {
		t.Errorf("metadata not stamped: %+v", meta)
	}
	if meta.Source != "tests" {
		t.Errorf("Source = %q, want tests", meta.Source)
	}

	id := meta.ID
	b.Dispatch()
	b.Trigger(ev)
	if ev.Metadata().ID != id {
		t.Error("metadata must not be restamped")
	}

	if _, ok := MetadataOf(&bareEvent{}); ok {
		t.Error("bare events carry no metadata")
	}
}

func TestBus_Stats(t *testing.T) {
	b := New()
	mustSubscribe(t, b, kindResized, &recorder{})
	mustSubscribe(t, b, kindKey, &recorder{})

	b.Trigger(&resized{})
	b.Queue(&keyPressed{})
	b.Queue(&keyPressed{})

	s := b.Stats()
	if s.Subscriptions != 2 || s.Pending != 2 {
		t.Errorf("unexpected stats before drain: %+v", s)
	}
	b.Dispatch()

	s = b.Stats()
	if s.EventsTriggered != 1 || s.EventsQueued != 2 || s.EventsDispatched != 2 {
		t.Errorf("unexpected event counters: %+v", s)
	}
	if s.HandlersExecuted != 3 {
		t.Errorf("HandlersExecuted = %d, want 3", s.HandlersExecuted)
	}
}

func TestBus_Reset(t *testing.T) {
	b := New()
	r := &recorder{}
	mustSubscribe(t, b, kindResized, r)
	b.Queue(&resized{})

	b.Reset()
	if b.Pending() != 0 || b.Count(kindResized) != 0 {
		t.Fatalf("Reset() left state behind: pending=%d count=%d", b.Pending(), b.Count(kindResized))
	}
	b.Dispatch()
	if r.count() != 0 {
		t.Error("dropped event was delivered")
	}
}

func TestBus_Kinds(t *testing.T) {
	b := New()
	mustSubscribe(t, b, kindResized, &recorder{})
	mustSubscribe(t, b, kindKey, &recorder{})
	tok := mustSubscribe(t, b, "z.last", &recorder{})

	if got := fmt.Sprint(b.Kinds()); got != "[input.key.pressed window.resized z.last]" {
		t.Errorf("Kinds() = %s", got)
	}
	b.Unsubscribe("z.last", tok)
	if len(b.Kinds()) != 2 {
		t.Errorf("empty kind not pruned: %v", b.Kinds())
	}
}

func TestOn_TypeMismatch(t *testing.T) {
	b := New()

	// A second Go type claiming the same kind.
	type impostor struct {
		resized
	}
	On(b, kindResized, func(e *resized) error { return nil })

	err := b.Trigger(&impostor{})
	var mismatch *KindMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *KindMismatchError, got %v", err)
	}
	if mismatch.Kind != kindResized {
		t.Errorf("mismatch kind = %q", mismatch.Kind)
	}
}

func TestOn_NilCallback(t *testing.T) {
	var fn func(*resized) error
	if _, err := On(New(), kindResized, fn); err != ErrNilHandler {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	a := Default()
	b := InitDefault(WithSource("ignored"))
	if a == nil || a != b {
		t.Fatal("Default() must return the same bus on every call")
	}
	if a == New() {
		t.Error("New() must return an independent bus")
	}
}

func TestBus_ConcurrentSubscribeUnsubscribeDuringTrigger(t *testing.T) {
	b := New()

	var stable atomic.Int64
	b.SubscribeFunc(kindResized, func(Event) error {
		stable.Add(1)
		return nil
	})

	const (
		triggers = 500
		churners = 8
	)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < churners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				tok, err := b.Subscribe(kindResized, &recorder{})
				if err != nil {
					t.Errorf("Subscribe() failed: %v", err)
					return
				}
				b.Unsubscribe(kindResized, tok)
			}
		}()
	}

	var triggerWG sync.WaitGroup
	for i := 0; i < 4; i++ {
		triggerWG.Add(1)
		go func() {
			defer triggerWG.Done()
			for j := 0; j < triggers; j++ {
				if err := b.Trigger(&resized{Width: j}); err != nil {
					t.Errorf("Trigger() failed: %v", err)
				}
				b.Queue(&resized{Width: j})
			}
		}()
	}

	triggerWG.Wait()
	close(stop)
	wg.Wait()

	if err := b.Dispatch(); err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if got, want := stable.Load(), int64(2*4*triggers); got != want {
		t.Errorf("stable handler received %d events, want %d", got, want)
	}
	if b.Count(kindResized) != 1 {
		t.Errorf("expected only the stable subscription to remain, got %d", b.Count(kindResized))
	}
}

func TestBus_ConcurrentQueue(t *testing.T) {
	b := New()
	r := &recorder{}
	mustSubscribe(t, b, kindKey, r)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Queue(&keyPressed{})
			}
		}()
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for i := 0; i < 50; i++ {
			b.Dispatch()
		}
	}()

	wg.Wait()
	<-drained
	b.Dispatch()

	if r.count() != 1000 {
		t.Errorf("delivered %d events, want 1000", r.count())
	}
}
