package util

import "sync"

// SigHandler receives the object that raised the signal plus optional params.
type SigHandler func(sender any, params ...any)

// Signals is a small synchronous in-process event bus. Handlers run in
// registration order on the emitting goroutine.
type Signals struct {
	mu       sync.RWMutex
	handlers map[string][]SigHandler
}

var globalSignals = NewSignals()

func NewSignals() *Signals {
	return &Signals{handlers: make(map[string][]SigHandler)}
}

func Sig() *Signals {
	return globalSignals
}

func (s *Signals) Connect(event string, handler SigHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], handler)
}

func (s *Signals) Emit(event string, sender any, params ...any) {
	s.mu.RLock()
	handlers := append([]SigHandler(nil), s.handlers[event]...)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(sender, params...)
	}
}

// Clear drops all handlers for event, or every handler when event is empty.
func (s *Signals) Clear(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event == "" {
		s.handlers = make(map[string][]SigHandler)
		return
	}
	delete(s.handlers, event)
}
