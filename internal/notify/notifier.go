// Package notify carries user-visible notifications from the engine to
// whatever surface renders them (the REPL prints them to the terminal).
package notify

import (
	"fmt"

	"github.com/mlodari/camposanto/internal/events"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level
	Message string
}

// Notifier publishes notifications over a typed emitter. Transient,
// recoverable conditions (queued writes, stale fallback, reconnect) go out
// as info/warning; only storage-initialization failures and non-queued
// online write failures are error level.
type Notifier struct {
	emitter *events.Emitter[Notification]
}

func NewNotifier() *Notifier {
	return &Notifier{emitter: events.NewEmitter[Notification]()}
}

func (n *Notifier) Subscribe(fn func(Notification)) (unsubscribe func()) {
	return n.emitter.Subscribe(fn)
}

func (n *Notifier) Info(format string, args ...any) {
	n.emitter.Emit(Notification{Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

func (n *Notifier) Warning(format string, args ...any) {
	n.emitter.Emit(Notification{Level: LevelWarning, Message: fmt.Sprintf(format, args...)})
}

func (n *Notifier) Error(format string, args ...any) {
	n.emitter.Emit(Notification{Level: LevelError, Message: fmt.Sprintf(format, args...)})
}
