package email_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/pkg/email"
)

func validMessage() email.Message {
	return email.Message{
		To:       "client@example.com",
		Subject:  "Your payment failed",
		HTMLBody: "<p>Please update your card.</p>",
		Tag:      "payment-failed",
	}
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*email.Message)
		wantErr bool
	}{
		{"valid", func(*email.Message) {}, false},
		{"no tag", func(m *email.Message) { m.Tag = "" }, false},
		{"missing recipient", func(m *email.Message) { m.To = "" }, true},
		{"bad recipient", func(m *email.Message) { m.To = "not-an-email" }, true},
		{"missing subject", func(m *email.Message) { m.Subject = "" }, true},
		{"long subject", func(m *email.Message) { m.Subject = strings.Repeat("s", 256) }, true},
		{"missing body", func(m *email.Message) { m.HTMLBody = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := validMessage()
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, email.ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)

	s, err := email.New(email.Config{Driver: "log"}, log)
	require.NoError(t, err)
	assert.IsType(t, &email.LogSender{}, s)

	s, err = email.New(email.Config{Driver: "dir", OutputDir: t.TempDir()}, log)
	require.NoError(t, err)
	assert.IsType(t, &email.DirSender{}, s)

	_, err = email.New(email.Config{Driver: "postmark"}, log)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = email.New(email.Config{
		Driver:               "postmark",
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "nope",
		SupportEmail:         "support@example.com",
	}, log)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	s, err = email.New(email.Config{
		Driver:               "postmark",
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "billing@example.com",
		SupportEmail:         "support@example.com",
	}, log)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = email.New(email.Config{Driver: "carrier-pigeon"}, log)
	require.ErrorIs(t, err, email.ErrUnknownDriver)
}

func TestDirSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	s := email.NewDirSender(dir)

	require.NoError(t, s.Send(context.Background(), validMessage()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = e.Name()
		case ".json":
			jsonFile = e.Name()
		}
	}
	require.NotEmpty(t, htmlFile)
	require.NotEmpty(t, jsonFile)
	assert.Contains(t, htmlFile, "payment-failed")

	body, err := os.ReadFile(filepath.Join(dir, htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<p>Please update your card.</p>", string(body))

	raw, err := os.ReadFile(filepath.Join(dir, jsonFile))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "client@example.com", meta["to"])

	err = s.Send(context.Background(), email.Message{})
	require.ErrorIs(t, err, email.ErrInvalidMessage)
}
