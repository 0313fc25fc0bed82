package core

import "sync"

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN   KeyCode = 0x00
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_H         KeyCode = 0x48
	KEY_P         KeyCode = 0x50
	KEY_Q         KeyCode = 0x51
	KEY_F1        KeyCode = 0x70

	KEY_MAX_KEYS KeyCode = 0xFF
)

type keyboardState struct {
	keys [KEY_MAX_KEYS]bool
}

// InputState tracks the current and previous keyboard state and turns
// transitions into key events on the bus.
type InputState struct {
	mu       sync.Mutex
	bus      *EventBus
	current  keyboardState
	previous keyboardState
}

func NewInputState(bus *EventBus) *InputState {
	return &InputState{bus: bus}
}

// Update copies the current state to the previous one. Call once per frame.
func (is *InputState) Update() {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.previous = is.current
}

func (is *InputState) IsKeyDown(key KeyCode) bool {
	is.mu.Lock()
	defer is.mu.Unlock()
	return key < KEY_MAX_KEYS && is.current.keys[key]
}

func (is *InputState) WasKeyDown(key KeyCode) bool {
	is.mu.Lock()
	defer is.mu.Unlock()
	return key < KEY_MAX_KEYS && is.previous.keys[key]
}

// ProcessKey records a key transition and fires the matching event if the
// state changed.
func (is *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEY_MAX_KEYS {
		return
	}
	is.mu.Lock()
	changed := is.current.keys[key] != pressed
	is.current.keys[key] = pressed
	is.mu.Unlock()

	if !changed || is.bus == nil {
		return
	}
	code := EventCodeKeyReleased
	if pressed {
		code = EventCodeKeyPressed
	}
	is.bus.Fire(EventContext{
		Type: code,
		Data: &KeyEvent{KeyCode: key},
	})
}
