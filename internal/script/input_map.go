package script

import (
	"slices"
	"sync"

	"github.com/dshills/demon/internal/config"
)

type binding struct {
	action  string
	pressed bool
}

// InputMap maps input event names such as "w" or "w-up" to action states.
// A name can drive several actions.
type InputMap struct {
	mu       sync.RWMutex
	bindings map[string][]binding
	state    map[string]bool
}

// NewInputMap creates an empty input map.
func NewInputMap() *InputMap {
	return &InputMap{
		bindings: make(map[string][]binding),
		state:    make(map[string]bool),
	}
}

// Bind makes name set action to pressed.
func (m *InputMap) Bind(name, action string, pressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindings[name] = append(m.bindings[name], binding{action: action, pressed: pressed})
	if _, ok := m.state[action]; !ok {
		m.state[action] = false
	}
}

// BindAll registers configured bindings.
func (m *InputMap) BindAll(bs []config.Binding) {
	for _, b := range bs {
		m.Bind(b.Event, b.Action, b.Pressed)
	}
}

// Handle applies the bindings for name and reports whether any matched.
func (m *InputMap) Handle(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	bs, ok := m.bindings[name]
	for _, b := range bs {
		m.state[b.action] = b.pressed
	}
	return ok
}

// Pressed reports the state of action. Unknown actions are not pressed.
func (m *InputMap) Pressed(action string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state[action]
}

// Actions returns the bound action names, sorted.
func (m *InputMap) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	actions := make([]string, 0, len(m.state))
	for a := range m.state {
		actions = append(actions, a)
	}
	slices.Sort(actions)
	return actions
}

// Release sets every action to not pressed.
func (m *InputMap) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for a := range m.state {
		m.state[a] = false
	}
}
