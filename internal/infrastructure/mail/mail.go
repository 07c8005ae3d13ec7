// Package mail sends outbound messages. The only backend writes messages
// to the log, which is enough for development and for the console-style
// delivery the service ships with.
package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when a message has no To address
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes each message to the log instead of delivering it
type LogSender struct {
	from   string
	logger *zap.Logger
}

// NewLogSender creates a sender that logs messages from the given address
func NewLogSender(from string, l *zap.Logger) *LogSender {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSender{from: from, logger: l.Named("mail")}
}

// Send logs the message
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.WithLogger(ctx, s.logger).Info("email sent",
		zap.String("from", s.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
