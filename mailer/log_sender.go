package mailer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSender writes mail to the log instead of sending it. Used in DEV.
type LogSender struct{}

var _ Sender = LogSender{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg(msg.Text)
	return nil
}
