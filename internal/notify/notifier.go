// Package notify sends trade and lifecycle notifications to an operator.
package notify

import (
	"fmt"

	"github.com/rxtech-lab/argo-runner/internal/logger"
)

// Notifier delivers human-facing messages. Implementations must never
// block trading: failures are logged and dropped.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Nop discards every message.
type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) Send(string) {}

func (Nop) Sendf(string, ...any) {}

// Logged writes every message to the structured log, the stdout fallback
// when no chat channel is configured.
type Logged struct {
	logger *logger.Logger
}

func NewLogged(log *logger.Logger) Logged {
	return Logged{logger: log.Named("notify")}
}

func (l Logged) Send(msg string) {
	l.logger.Info(msg)
}

func (l Logged) Sendf(format string, args ...any) {
	l.Send(fmt.Sprintf(format, args...))
}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Send(msg string) {
	for _, n := range m {
		n.Send(msg)
	}
}

func (m Multi) Sendf(format string, args ...any) {
	m.Send(fmt.Sprintf(format, args...))
}
