package event

import "sync"

var (
	defaultOnce sync.Once
	defaultBus  *Bus
)

// Default returns the process-wide bus, creating it on first use.
func Default() *Bus {
	return InitDefault()
}

// InitDefault returns the process-wide bus. The options are applied only if
// this call creates it; later calls ignore them.
func InitDefault(opts ...Option) *Bus {
	defaultOnce.Do(func() {
		defaultBus = New(opts...)
	})
	return defaultBus
}
