package input

import (
	"slices"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/demon/internal/event/events"
)

var namedKeys = map[tcell.Key]string{
	tcell.KeyEscape:     "escape",
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyBacktab:    "backtab",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyDelete:     "delete",
	tcell.KeyInsert:     "insert",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pageup",
	tcell.KeyPgDn:       "pagedown",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyF1:         "f1",
	tcell.KeyF2:         "f2",
	tcell.KeyF3:         "f3",
	tcell.KeyF4:         "f4",
	tcell.KeyF5:         "f5",
	tcell.KeyF6:         "f6",
	tcell.KeyF7:         "f7",
	tcell.KeyF8:         "f8",
	tcell.KeyF9:         "f9",
	tcell.KeyF10:        "f10",
	tcell.KeyF11:        "f11",
	tcell.KeyF12:        "f12",
}

// convertKey builds a KeyPressed from a tcell key event.
func convertKey(e *tcell.EventKey) *events.KeyPressed {
	mods := convertMods(e.Modifiers())
	k := e.Key()

	if k == tcell.KeyRune {
		r := e.Rune()
		if r == ' ' {
			return &events.KeyPressed{Key: "space", Rune: r, Mods: mods}
		}
		return &events.KeyPressed{Key: strings.ToLower(string(r)), Rune: r, Mods: mods}
	}
	if name, ok := namedKeys[k]; ok {
		return &events.KeyPressed{Key: name, Mods: mods}
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		letter := string(rune('a' + (k - tcell.KeyCtrlA)))
		if !slices.Contains(mods, events.ModifierCtrl) {
			mods = append([]events.Modifier{events.ModifierCtrl}, mods...)
		}
		return &events.KeyPressed{Key: letter, Mods: mods}
	}
	if k == tcell.KeyCtrlSpace {
		return &events.KeyPressed{Key: "space", Mods: []events.Modifier{events.ModifierCtrl}}
	}
	return &events.KeyPressed{Key: strings.ToLower(e.Name()), Mods: mods}
}

// convertMods orders modifiers as ctrl, alt, shift, meta.
func convertMods(m tcell.ModMask) []events.Modifier {
	var mods []events.Modifier
	if m&tcell.ModCtrl != 0 {
		mods = append(mods, events.ModifierCtrl)
	}
	if m&tcell.ModAlt != 0 {
		mods = append(mods, events.ModifierAlt)
	}
	if m&tcell.ModShift != 0 {
		mods = append(mods, events.ModifierShift)
	}
	if m&tcell.ModMeta != 0 {
		mods = append(mods, events.ModifierMeta)
	}
	return mods
}
