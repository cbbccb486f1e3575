package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	name     string
	err      error
	received []string
}

func (s *stubSender) Send(_ context.Context, title, message string) error {
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, title+": "+message)
	return nil
}

func (s *stubSender) Name() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEvent(t *testing.T) {
	sender := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{sender}, []string{"rule_fired"}, discardLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, "rule_fired", "Alert", "rule fired"))
	require.NoError(t, n.Notify(ctx, "price_applied", "Alert", "filtered out"))

	assert.Equal(t, []string{"Alert: rule fired"}, sender.received)
}

func TestEmptyEventListAllowsEverything(t *testing.T) {
	sender := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{sender}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "Alert", "body"))
	assert.Len(t, sender.received, 1)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	sender := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{sender}, []string{"rule_fired"}, discardLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "Alert", "bypass"))
	assert.Len(t, sender.received, 1)
}

func TestSenderFailureDoesNotBlockOthers(t *testing.T) {
	broken := &stubSender{name: "telegram", err: errors.New("timeout")}
	working := &stubSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, discardLogger())

	err := n.Notify(context.Background(), "rule_fired", "Alert", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Len(t, working.received, 1)
}

func TestNoSendersIsANoOp(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	assert.NoError(t, n.Notify(context.Background(), "rule_fired", "Alert", "body"))
}
