// Package notify surfaces success and error messages to the user.
//
// Messages are ephemeral and fire-and-forget: sinks never block the caller
// and never return errors.
package notify

import (
	"log/slog"
	"time"
)

// Level is the severity of a message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Position hints where the UI should place a message.
type Position string

const (
	// TopCenter is used for form validation and success messages.
	TopCenter Position = "top-center"
	// BottomCenter is used for backend failures.
	BottomCenter Position = "bottom-center"
)

// Message is one notification.
type Message struct {
	Level    Level     `json:"level"`
	Text     string    `json:"text"`
	Position Position  `json:"position"`
	At       time.Time `json:"at"`
}

// Sink receives notifications.
type Sink interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
	Notify(m Message)
}

// Failure reports a backend failure near the bottom of the screen.
func Failure(s Sink, msg string) {
	s.Notify(Message{Level: LevelError, Text: msg, Position: BottomCenter})
}

// Log writes notifications to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a sink that logs every message.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Info(msg string)    { l.Notify(Message{Level: LevelInfo, Text: msg}) }
func (l *Log) Success(msg string) { l.Notify(Message{Level: LevelSuccess, Text: msg}) }
func (l *Log) Error(msg string)   { l.Notify(Message{Level: LevelError, Text: msg}) }

func (l *Log) Notify(m Message) {
	m = normalize(m, time.Now())
	if m.Level == LevelError {
		l.logger.Warn("Notification", "level", m.Level, "text", m.Text, "position", m.Position)
		return
	}
	l.logger.Info("Notification", "level", m.Level, "text", m.Text, "position", m.Position)
}

// Multi fans each message out to several sinks.
type Multi []Sink

func (m Multi) Info(msg string)    { m.Notify(Message{Level: LevelInfo, Text: msg}) }
func (m Multi) Success(msg string) { m.Notify(Message{Level: LevelSuccess, Text: msg}) }
func (m Multi) Error(msg string)   { m.Notify(Message{Level: LevelError, Text: msg}) }

func (m Multi) Notify(msg Message) {
	msg = normalize(msg, time.Now())
	for _, s := range m {
		s.Notify(msg)
	}
}

func normalize(m Message, now time.Time) Message {
	if m.Position == "" {
		m.Position = TopCenter
	}
	if m.Level == "" {
		m.Level = LevelInfo
	}
	if m.At.IsZero() {
		m.At = now
	}
	return m
}
