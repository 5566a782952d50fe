// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Source tags every message this package emits.
const Source = "artifactgen"

// SeverityError is the only severity the runner emits.
const SeverityError Severity = "ERROR"

type (
	// Severity of a build message.
	Severity string

	// Message is one diagnostic emitted during a build task.
	Message struct {
		Source   string
		Severity Severity
		Text     string
	}

	// Sink receives build messages.
	Sink interface {
		Add(msg Message)
	}

	// SinkFunc adapts a function to Sink.
	SinkFunc func(msg Message)

	// Collector is a Sink that keeps every message.
	Collector struct {
		mu       sync.Mutex
		messages []Message
	}

	// LogSink forwards messages to a structured logger.
	LogSink struct {
		Logger *log.Logger
	}

	multiSink []Sink
)

// Add calls f(msg).
func (f SinkFunc) Add(msg Message) { f(msg) }

// Add records msg.
func (c *Collector) Add(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the recorded messages.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Add logs msg at error level.
func (s LogSink) Add(msg Message) {
	if s.Logger == nil {
		return
	}
	s.Logger.Error(msg.Text, "source", msg.Source, "severity", msg.Severity)
}

// Tee returns a Sink that forwards to each of sinks.
func Tee(sinks ...Sink) Sink { return multiSink(sinks) }

func (m multiSink) Add(msg Message) {
	for _, s := range m {
		s.Add(msg)
	}
}
