package admin

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedzAdmin/Dark-Panel/internal/db"
	"github.com/RedzAdmin/Dark-Panel/internal/panel"
)

type fakeSender struct {
	sent     []tgbotapi.MessageConfig
	edits    int
	requests []tgbotapi.Chattable
	failFor  map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		if f.failFor[m.ChatID] {
			return tgbotapi.Message{}, errors.New("blocked by user")
		}
		f.sent = append(f.sent, m)
	case tgbotapi.EditMessageTextConfig:
		f.edits++
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].Text
}

type fakeStore struct {
	admins   map[int64]bool
	payments []*db.Payment
	users    []db.User
	reads    int
}

func (f *fakeStore) IsAdmin(id int64) bool { return f.admins[id] }

func (f *fakeStore) PendingPayments() ([]db.Payment, error) {
	f.reads++
	var out []db.Payment
	for _, p := range f.payments {
		if !p.Confirmed {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ApprovePayment(id string) (*db.Payment, error) {
	for _, p := range f.payments {
		if p.ID == id && !p.Confirmed {
			p.Confirmed = true
			return p, nil
		}
	}
	return nil, db.ErrAlreadyConfirmed
}

func (f *fakeStore) CountUsers() int64 {
	f.reads++
	return int64(len(f.users))
}

func (f *fakeStore) CountServers() int64 { f.reads++; return 0 }

func (f *fakeStore) CountPayments() (int64, int64) {
	f.reads++
	var confirmed int64
	for _, p := range f.payments {
		if p.Confirmed {
			confirmed++
		}
	}
	return int64(len(f.payments)), confirmed
}

func (f *fakeStore) ListUsers(limit int) ([]db.User, error) {
	f.reads++
	if len(f.users) > limit {
		return f.users[:limit], nil
	}
	return f.users, nil
}

func (f *fakeStore) CountUserServers(int64) int64 { return 0 }

type fakePanel struct {
	servers []panel.Server
	failIDs map[string]bool
	stopped []string
	listErr error
}

func (f *fakePanel) ListServers(context.Context) ([]panel.Server, error) {
	return f.servers, f.listErr
}

func (f *fakePanel) op(id string) error {
	if f.failIDs[id] {
		return errors.New("power action failed")
	}
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakePanel) StopServer(_ context.Context, id string) error    { return f.op(id) }
func (f *fakePanel) SuspendServer(_ context.Context, id string) error { return f.op(id) }
func (f *fakePanel) RestartServer(_ context.Context, id string) error { return f.op(id) }

func newTestHandler() (*Handler, *fakeSender, *fakeStore, *fakePanel) {
	sender := &fakeSender{failFor: make(map[int64]bool)}
	store := &fakeStore{admins: map[int64]bool{1: true}}
	pan := &fakePanel{failIDs: make(map[string]bool)}
	return NewHandler(sender, store, pan), sender, store, pan
}

func adminCallback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		Data: data,
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
	}
}

func adminMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
	}
}

func TestPanelEntryDeniedExplicitly(t *testing.T) {
	h, sender, _, _ := newTestHandler()
	h.HandlePanel(adminMessage(99, "Admin Panel"))
	assert.Contains(t, sender.lastText(t), "ACCESS DENIED")
}

func TestCallbackDeniedForNonAdmin(t *testing.T) {
	h, sender, store, _ := newTestHandler()
	h.HandleCallback(adminCallback(99, "admin_stats"))
	assert.Empty(t, sender.sent, "no stats message for non-admins")
	assert.Zero(t, store.reads, "no store access for non-admins")
}

func TestStats(t *testing.T) {
	h, sender, store, _ := newTestHandler()
	store.users = []db.User{{TelegramID: 10}, {TelegramID: 11}}
	store.payments = []*db.Payment{
		{ID: "p1", Confirmed: true},
		{ID: "p2"},
	}
	h.HandleCallback(adminCallback(1, "admin_stats"))
	text := sender.lastText(t)
	assert.Contains(t, text, "Total users: 2")
	assert.Contains(t, text, "Total payments: 2")
	assert.Contains(t, text, "Confirmed payments: 1")
}

func TestBulkShutdownCountsPartialFailures(t *testing.T) {
	h, sender, _, pan := newTestHandler()
	pan.servers = []panel.Server{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	pan.failIDs["b"] = true

	h.HandleCallback(adminCallback(1, "confirm_shutdown"))
	assert.Equal(t, 1, sender.edits, "in-place progress edit")
	assert.Contains(t, sender.lastText(t), "2 of 3")
	assert.ElementsMatch(t, []string{"a", "c"}, pan.stopped)
}

func TestBulkOpNeedsConfirmation(t *testing.T) {
	h, sender, _, pan := newTestHandler()
	pan.servers = []panel.Server{{ID: "a"}}

	h.HandleCallback(adminCallback(1, "admin_shutdown"))
	assert.Empty(t, pan.stopped, "first press only prompts")
	require.NotEmpty(t, sender.sent)
	assert.NotNil(t, sender.sent[len(sender.sent)-1].ReplyMarkup, "confirmation keyboard attached")
}

func TestBulkOpListFailureSurfaced(t *testing.T) {
	h, sender, _, pan := newTestHandler()
	pan.listErr = errors.New("panel unreachable")
	h.HandleCallback(adminCallback(1, "confirm_restart"))
	assert.Contains(t, sender.lastText(t), "panel unreachable")
}

func TestApproveTargetsExactPayment(t *testing.T) {
	h, sender, store, _ := newTestHandler()
	store.payments = []*db.Payment{
		{ID: "p1", UserID: 10, TransactionID: "TX1"},
		{ID: "p2", UserID: 11, TransactionID: "TX2"},
	}

	h.HandleApprove(adminMessage(1, "/approve p2"))
	assert.True(t, store.payments[1].Confirmed)
	assert.False(t, store.payments[0].Confirmed, "only the addressed payment flips")

	// The payer got the approval notice.
	var notified bool
	for _, m := range sender.sent {
		if m.ChatID == 11 {
			notified = true
		}
	}
	assert.True(t, notified)

	// Approving the same id again is rejected, never re-confirmed.
	h.HandleApprove(adminMessage(1, "/approve p2"))
	assert.Contains(t, sender.lastText(t), "already confirmed")
}

func TestApproveSurvivesNotificationFailure(t *testing.T) {
	h, sender, store, _ := newTestHandler()
	store.payments = []*db.Payment{{ID: "p1", UserID: 10, TransactionID: "TX1"}}
	sender.failFor[10] = true

	h.HandleApprove(adminMessage(1, "/approve p1"))
	assert.True(t, store.payments[0].Confirmed, "approval is not rolled back")
	assert.Contains(t, sender.lastText(t), "Payment p1 confirmed")
}

func TestApproveDeniedForNonAdmin(t *testing.T) {
	h, sender, store, _ := newTestHandler()
	store.payments = []*db.Payment{{ID: "p1", UserID: 10}}
	h.HandleApprove(adminMessage(99, "/approve p1"))
	assert.False(t, store.payments[0].Confirmed)
	assert.Contains(t, sender.lastText(t), "ACCESS DENIED")
}

func TestPendingPaymentsListing(t *testing.T) {
	h, sender, store, _ := newTestHandler()
	store.payments = []*db.Payment{
		{ID: "p1", UserID: 10, TransactionID: "TX1"},
		{ID: "p2", UserID: 11, TransactionID: "TX2", Confirmed: true},
	}
	h.HandleCallback(adminCallback(1, "admin_confirm"))
	text := sender.lastText(t)
	assert.Contains(t, text, "p1")
	assert.NotContains(t, text, "TX2", "confirmed payments are filtered out")
	assert.Contains(t, text, "/approve <payment_id>")
}
