// Package main demonstrates the event bus: an object subscribes to a
// custom event, one event is triggered immediately, two are queued and
// delivered by a single Dispatch, then the object unsubscribes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dshills/demon/internal/config"
	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/logging"
)

// kindTest is the kind of TestEvent.
const kindTest event.Kind = "demo.test"

// TestEvent carries two values.
type TestEvent struct {
	event.Base
	ValueA uint
	ValueB uint
}

// Kind implements event.Event.
func (*TestEvent) Kind() event.Kind { return kindTest }

// testObj subscribes on creation and unsubscribes on Close.
type testObj struct {
	out   io.Writer
	bus   *event.Bus
	token event.Token
}

func newTestObj(bus *event.Bus, out io.Writer) (*testObj, error) {
	obj := &testObj{out: out, bus: bus}
	tok, err := event.On(bus, kindTest, obj.onEvent)
	if err != nil {
		return nil, err
	}
	obj.token = tok
	fmt.Fprintln(out, "[TestObj] Subscribed to TestEvent.")
	return obj, nil
}

func (o *testObj) onEvent(e *TestEvent) error {
	fmt.Fprintf(o.out, "[TestObj] OnEvent: value_a: %d value_b: %d\n", e.ValueA, e.ValueB)
	return nil
}

func (o *testObj) Close() {
	o.bus.Unsubscribe(kindTest, o.token)
	fmt.Fprintln(o.out, "[TestObj] Unsubscribed from TestEvent.")
}

func main() {
	level := flag.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	logger, _ := logging.New(config.LogConfig{Level: *level, Format: "console"}, os.Stderr)
	bus := event.InitDefault(event.WithLogger(logger), event.WithSource("eventdemo"))

	if err := run(bus, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(bus *event.Bus, out io.Writer) error {
	obj, err := newTestObj(bus, out)
	if err != nil {
		return err
	}
	defer obj.Close()

	// Handled before Trigger returns.
	if err := bus.Trigger(&TestEvent{ValueA: 1024, ValueB: 768}); err != nil {
		return err
	}

	for _, e := range []*TestEvent{{ValueA: 800, ValueB: 600}, {ValueA: 1280, ValueB: 720}} {
		if err := bus.Queue(e); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "[Demo] %d events queued.\n", bus.Pending())

	return bus.Dispatch()
}
