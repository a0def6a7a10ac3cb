// Package notify emails account holders about billing state changes.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/photovault/photovault/pkg/email"
	"github.com/photovault/photovault/pkg/email/templates"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/directory"
	"github.com/photovault/photovault/svc/family"
)

// Config carries the values rendered into every message.
type Config struct {
	AppName              string `env:"APP_NAME" envDefault:"PhotoVault"`
	AppURL               string `env:"APP_URL" envDefault:"http://localhost:8080"`
	RecurringAmountCents int64  `env:"BILLING_RECURRING_AMOUNT_CENTS" envDefault:"800"`
	Currency             string `env:"BILLING_CURRENCY" envDefault:"USD"`
	Locale               string `env:"EMAIL_LOCALE" envDefault:"en-US"`
}

// Users resolves recipients.
type Users interface {
	User(ctx context.Context, id uuid.UUID) (*directory.User, error)
}

// Mailer implements account.Notifier and family.Notifier.
type Mailer struct {
	sender  email.Sender
	users   Users
	cfg     Config
	printer *message.Printer
	lang    language.Tag
	unit    currency.Unit
	log     *slog.Logger
}

var (
	_ account.Notifier = (*Mailer)(nil)
	_ family.Notifier  = (*Mailer)(nil)
)

// NewMailer validates the locale and currency in cfg. It panics when sender or users is nil.
func NewMailer(sender email.Sender, users Users, cfg Config, log *slog.Logger) (*Mailer, error) {
	if sender == nil || users == nil {
		panic("notify: sender and users are required")
	}
	if log == nil {
		log = slog.Default()
	}
	lang, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", cfg.Locale, err)
	}
	unit, err := currency.ParseISO(strings.ToUpper(cfg.Currency))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", cfg.Currency, err)
	}
	return &Mailer{
		sender:  sender,
		users:   users,
		cfg:     cfg,
		printer: message.NewPrinter(lang),
		lang:    lang,
		unit:    unit,
		log:     log,
	}, nil
}

// FormatAmount renders minor units in the configured currency and locale.
func (m *Mailer) FormatAmount(cents int64) string {
	return m.printer.Sprint(currency.Symbol(m.unit.Amount(float64(cents) / 100)))
}

func (m *Mailer) GraceStarted(ctx context.Context, acc account.Account) error {
	since := acc.UpdatedAt
	if acc.LastPaymentFailureAt != nil {
		since = *acc.LastPaymentFailureAt
	}
	u, err := m.holder(ctx, acc)
	if err != nil {
		return err
	}
	body := graceEmail(graceData{
		site:     m.site(),
		Name:     m.name(u),
		Deadline: m.formatDate(since.AddDate(0, 0, account.GraceDays)),
		Amount:   m.FormatAmount(m.cfg.RecurringAmountCents),
		Ending:   acc.GraceCause == account.GraceCancelScheduled || acc.GraceCause == account.GraceSubscriptionEnded,
	})
	return m.send(ctx, u.Email, "grace-started", "Action needed: your "+m.cfg.AppName+" payment", body)
}

func (m *Mailer) Suspended(ctx context.Context, acc account.Account) error {
	u, err := m.holder(ctx, acc)
	if err != nil {
		return err
	}
	body := suspendedEmail(suspendedData{site: m.site(), Name: m.name(u), Amount: m.FormatAmount(m.cfg.RecurringAmountCents)})
	return m.send(ctx, u.Email, "suspended", "Your "+m.cfg.AppName+" galleries are paused", body)
}

func (m *Mailer) Reactivated(ctx context.Context, acc account.Account) error {
	u, err := m.holder(ctx, acc)
	if err != nil {
		return err
	}
	return m.send(ctx, u.Email, "reactivated", "Welcome back to "+m.cfg.AppName, reactivatedEmail(m.site(), m.name(u)))
}

func (m *Mailer) TakeoverCompleted(ctx context.Context, n family.TakeoverNotice) error {
	primary, err := m.users.User(ctx, n.PrimaryUserID)
	if err != nil {
		return fmt.Errorf("load primary: %w", err)
	}
	payer, err := m.users.User(ctx, n.NewPayerUserID)
	if err != nil {
		return fmt.Errorf("load payer: %w", err)
	}
	d := takeoverData{
		site:    m.site(),
		Primary: m.name(primary),
		Payer:   m.name(payer),
		Amount:  m.FormatAmount(m.cfg.RecurringAmountCents),
		Overdue: n.TakeoverType == family.TakeoverDelinquent,
	}
	if err := m.send(ctx, primary.Email, "takeover-primary", d.Payer+" now pays for your "+m.cfg.AppName+" account", takeoverPrimaryEmail(d)); err != nil {
		return err
	}
	return m.send(ctx, payer.Email, "takeover-payer", "You now pay for "+d.Primary+"'s galleries", takeoverPayerEmail(d))
}

func (m *Mailer) holder(ctx context.Context, acc account.Account) (*directory.User, error) {
	u, err := m.users.User(ctx, acc.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account holder: %w", err)
	}
	return u, nil
}

func (m *Mailer) site() site {
	return site{AppName: m.cfg.AppName, AppURL: m.cfg.AppURL}
}

func (m *Mailer) send(ctx context.Context, to, tag, subject string, body templ.Component) error {
	html, err := templates.Render(ctx, body)
	if err != nil {
		return fmt.Errorf("render %s: %w", tag, err)
	}
	text, err := templates.RenderText(ctx, body)
	if err != nil {
		return fmt.Errorf("render %s text: %w", tag, err)
	}
	msg := email.Message{
		To:       to,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
		Tag:      tag,
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return err
	}
	m.log.DebugContext(ctx, "notification sent", slog.String("tag", tag))
	return nil
}

func (m *Mailer) name(u *directory.User) string {
	if u.Name == "" {
		return u.Email
	}
	return cases.Title(m.lang).String(u.Name)
}

func (m *Mailer) formatDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}
