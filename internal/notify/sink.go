package notify

import (
	"context"
	"errors"
	"fmt"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

// Sink delivers a notification over one channel (log, redis, websocket hub).
type Sink interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n domain.Notification) error

func (f SinkFunc) Deliver(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// MultiSink delivers to every sink, even when an earlier one fails.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes email- and sms-style messages to dedicated loggers.
type LogSink struct {
	email *logger.Logger
	sms   *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{email: log.Named("email"), sms: log.Named("sms")}
}

func (s *LogSink) Deliver(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.email.Info("email sent",
		"to", n.Username+"@example.com",
		"subject", "Quiz Attempt Result - "+n.QuizTitle,
		"body", EmailBody(n),
	)
	s.sms.Info("sms sent", "user", n.Username, "message", SMSBody(n))
	return nil
}

// EmailBody renders the long-form result message.
func EmailBody(n domain.Notification) string {
	return fmt.Sprintf("Hello %s,\n\nYou have completed the quiz: %s\nYour score: %.2f%%\n\nThank you!", n.Username, n.QuizTitle, n.Score)
}

// SMSBody renders the short-form result message.
func SMSBody(n domain.Notification) string {
	return fmt.Sprintf("Quiz '%s' completed! Score: %.2f%%", n.QuizTitle, n.Score)
}
