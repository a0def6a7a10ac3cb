package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DirSender writes each message as an .html body plus a .json envelope.
type DirSender struct {
	dir string
	now func() time.Time
}

// NewDirSender writes each message as a file under dir.
func NewDirSender(dir string) *DirSender {
	return &DirSender{dir: dir, now: time.Now}
}

func (d *DirSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	name := msg.Tag
	if name == "" {
		name = msg.Subject
	}
	base := filepath.Join(d.dir, now.Format("20060102_150405.000000")+"_"+fileSafe(name))

	if err := os.WriteFile(base+".html", []byte(msg.HTMLBody), 0o644); err != nil {
		return fmt.Errorf("%w: write body: %v", ErrFailedToSendEmail, err)
	}
	meta, err := json.MarshalIndent(struct {
		SentAt  time.Time `json:"sent_at"`
		To      string    `json:"to"`
		Subject string    `json:"subject"`
		Tag     string    `json:"tag,omitempty"`
	}{now, msg.To, msg.Subject, msg.Tag}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(base+".json", meta, 0o644); err != nil {
		return fmt.Errorf("%w: write envelope: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9\-_.]`)

func fileSafe(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(strings.ReplaceAll(s, " ", "_")), "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		return "email"
	}
	return s
}

// LogSender only logs the envelope.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender logs messages instead of sending them.
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.log.InfoContext(ctx, "email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
	)
	return nil
}
