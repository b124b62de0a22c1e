package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a class of events, e.g. "window.resized".
type Kind string

// KindSeparator separates the segments of a Kind.
const KindSeparator = "."

// String returns the kind as a string.
func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether the kind is non-empty, contains no whitespace and
// has no empty segments.
func (k Kind) IsValid() bool {
	s := string(k)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, KindSeparator) || strings.HasSuffix(s, KindSeparator) {
		return false
	}
	if strings.Contains(s, KindSeparator+KindSeparator) {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n")
}

// Namespace returns the first segment of the kind.
func (k Kind) Namespace() string {
	s := string(k)
	if i := strings.Index(s, KindSeparator); i >= 0 {
		return s[:i]
	}
	return s
}

// Event is the contract every value passed through the bus satisfies.
// Concrete events usually get the propagation methods by embedding Base.
type Event interface {
	// Kind returns the kind handlers are looked up by.
	Kind() Kind

	// StopPropagation prevents handlers later in the current pass from
	// receiving the event.
	StopPropagation()

	// IsPropagationStopped reports whether StopPropagation was called.
	IsPropagationStopped() bool
}

// Metadata contains bookkeeping fields stamped on events that embed Base.
type Metadata struct {
	// ID is a unique identifier, assigned on first Trigger or Queue.
	ID string

	// Timestamp is when the event first entered the bus.
	Timestamp time.Time

	// Source names the producer. Defaults to the bus source.
	Source string
}

// Base implements the propagation half of Event. Embed it in concrete event
// structs and pass those structs by pointer.
type Base struct {
	Meta    Metadata
	stopped bool
}

// StopPropagation marks the event as handled.
func (b *Base) StopPropagation() {
	b.stopped = true
}

// IsPropagationStopped reports whether StopPropagation was called.
func (b *Base) IsPropagationStopped() bool {
	return b.stopped
}

// ResumePropagation clears the stop flag so the event can be delivered again.
func (b *Base) ResumePropagation() {
	b.stopped = false
}

// Metadata returns the event metadata.
func (b *Base) Metadata() Metadata {
	return b.Meta
}

func (b *Base) eventBase() *Base {
	return b
}

type baseCarrier interface {
	eventBase() *Base
}

// MetadataOf returns the metadata of events embedding Base.
func MetadataOf(e Event) (Metadata, bool) {
	c, ok := e.(baseCarrier)
	if !ok {
		return Metadata{}, false
	}
	return c.eventBase().Meta, true
}

// stamp fills in missing metadata on events that embed Base.
func stamp(e Event, source string) {
	c, ok := e.(baseCarrier)
	if !ok {
		return
	}
	m := &c.eventBase().Meta
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.Source == "" {
		m.Source = source
	}
}

func validEvent(e Event) bool {
	return e != nil && e.Kind().IsValid()
}
