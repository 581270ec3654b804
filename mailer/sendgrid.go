package mailer

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendgridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

var _ Sender = (*SendgridSender)(nil)

func NewSendgridSender(apiKey, fromName, fromEmail string) (*SendgridSender, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("[NewSendgridSender] api key and from address are required")
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromEmail),
	}, nil
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	m := sgmail.NewSingleEmail(s.from, msg.Subject, sgmail.NewEmail("", msg.To), msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return errors.Wrap(err, "[SendgridSender Send]")
	}
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return errors.Errorf("[SendgridSender Send] unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}
