package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EventCodeApplicationQuit SystemEventCode = 0x01

	// Keyboard key pressed. Data: *KeyEvent
	EventCodeKeyPressed SystemEventCode = 0x02

	// Keyboard key released. Data: *KeyEvent
	EventCodeKeyReleased SystemEventCode = 0x03

	// Resized/resolution changed from the OS. Data: *ResizeEvent
	EventCodeResized SystemEventCode = 0x08

	// Live-tunable configuration changed on disk. Data: *Config
	EventCodeConfigReloaded SystemEventCode = 0x10

	MaxEventCode SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

// Should return true if handled.
type FnOnEvent func(ctx EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events synchronously to registered listeners. Events
// may be fired from any goroutine.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

// Register to listen for when events are sent with the provided code. Events with duplicate
// listeners will not be registered again and will cause this to return false.
func (eb *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, e := range eb.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister from listening for when events are sent with the provided code. If no matching
// registration is found, this function returns false.
func (eb *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends an event to listeners of its code. If a handler returns true the
// event is considered handled and is not passed on to any more listeners.
func (eb *EventBus) Fire(ctx EventContext) bool {
	eb.mu.RLock()
	events := append([]*registeredEvent(nil), eb.registered[ctx.Type]...)
	eb.mu.RUnlock()

	for _, e := range events {
		if e.callback(ctx) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (eb *EventBus) Shutdown() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.registered = make(map[SystemEventCode][]*registeredEvent)
}
