// Package email sends transactional mail through Postmark, or writes it to
// disk or the log for local development.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email ready for delivery.
type Message struct {
	To       string `json:"to" validate:"required,email"`
	Subject  string `json:"subject" validate:"required,max=255"`
	HTMLBody string `json:"html_body" validate:"required"`
	TextBody string `json:"text_body,omitempty"`
	Tag      string `json:"tag,omitempty" validate:"omitempty,max=64"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks the message fields.
func (m Message) Validate() error {
	validateOnce.Do(func() { validate = validator.New(validator.WithRequiredStructEnabled()) })
	if err := validate.Struct(m); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	return nil
}

// New builds the sender selected by cfg.Driver.
func New(cfg Config, log *slog.Logger) (Sender, error) {
	switch cfg.Driver {
	case "postmark":
		return NewPostmarkSender(cfg)
	case "dir":
		return NewDirSender(cfg.OutputDir), nil
	case "log", "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
