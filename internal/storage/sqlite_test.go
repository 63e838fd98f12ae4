package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"autoforward_bot/internal/model"
)

var ignoreMessageTS = cmpopts.IgnoreFields(model.ForwardedMessage{}, "ForwardedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strptr(s string) *string { return &s }

func seedSession(t *testing.T, s *SQLite, sessionID string) *model.Session {
	t.Helper()
	sess := &model.Session{
		SessionID:       sessionID,
		SourceChat:      "@source",
		DestinationChat: "@dest",
		Keywords:        strptr("sale,discount"),
		ForwardMedia:    true,
		DelaySeconds:    2,
	}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}

func TestMessageLog(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name string
		msg  model.ForwardedMessage
	}{
		{
			name: "text message with matched keywords",
			msg: model.ForwardedMessage{
				MessageID:       101,
				SourceChat:      "@source",
				DestinationChat: "@dest",
				MessageText:     "Big Sale Today",
				KeywordsMatched: strptr("sale"),
			},
		},
		{
			name: "media message without text",
			msg: model.ForwardedMessage{
				MessageID:       102,
				SourceChat:      "@source",
				DestinationChat: "@dest",
				HasMedia:        true,
				MediaType:       strptr("photo"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			if err := s.CreateMessage(ctx, &msg); err != nil {
				t.Fatalf("create: %v", err)
			}
			if msg.ID == 0 {
				t.Fatal("expected non-zero ID")
			}
			if msg.ForwardedAt.IsZero() {
				t.Fatal("expected ForwardedAt to be populated")
			}
		})
	}

	got, err := s.ListMessages(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(2, len(got)); diff != "" {
		t.Fatalf("message count (-want +got):\n%s", diff)
	}
}

func TestListMessagesOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		msg := model.ForwardedMessage{
			MessageID:       int64(200 + i),
			SourceChat:      "@source",
			DestinationChat: "@dest",
			MessageText:     "msg",
			ForwardedAt:     base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.CreateMessage(ctx, &msg); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.ListMessages(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []int64
	for _, m := range got {
		ids = append(ids, m.MessageID)
	}
	if diff := cmp.Diff([]int64{202, 201}, ids); diff != "" {
		t.Errorf("newest-first order (-want +got):\n%s", diff)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	sess := seedSession(t, s, "bot_20250601_120000")

	got, err := s.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsActive {
		t.Fatal("new session should be active")
	}
	if got.StoppedAt != nil {
		t.Fatal("new session should have no stop timestamp")
	}

	now := time.Now().UTC()
	if err := s.RecordReceived(ctx, sess.SessionID, now); err != nil {
		t.Fatalf("record received: %v", err)
	}
	if err := s.RecordForward(ctx, sess.SessionID, now); err != nil {
		t.Fatalf("record forward: %v", err)
	}
	if err := s.RecordForward(ctx, sess.SessionID, now); err != nil {
		t.Fatalf("record forward: %v", err)
	}

	got, err = s.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(int64(1), got.MessagesReceived); diff != "" {
		t.Errorf("received count (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(int64(2), got.MessagesForwarded); diff != "" {
		t.Errorf("forwarded count (-want +got):\n%s", diff)
	}

	if err := s.CloseSession(ctx, sess.SessionID, now); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err = s.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive {
		t.Fatal("closed session should be inactive")
	}
	if got.StoppedAt == nil {
		t.Fatal("closed session should have a stop timestamp")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	times := []time.Time{
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		sess := &model.Session{
			SessionID:       []string{"bot_old", "bot_new"}[i],
			SourceChat:      "@source",
			DestinationChat: "@dest",
			StartedAt:       ts,
		}
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, sess := range got {
		ids = append(ids, sess.SessionID)
	}
	if diff := cmp.Diff([]string{"bot_new", "bot_old"}, ids); diff != "" {
		t.Errorf("session order (-want +got):\n%s", diff)
	}
}

func TestErrorLog(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	ownerless := model.ErrorLog{
		ErrorType:    "initialization",
		ErrorMessage: "could not connect",
	}
	if err := s.CreateError(ctx, &ownerless); err != nil {
		t.Fatalf("create: %v", err)
	}

	owned := model.ErrorLog{
		SessionID:    strptr("bot_20250601_120000"),
		ErrorType:    "forwarding",
		ErrorMessage: "forward failed",
		Detail:       strptr("telegram: bad request"),
	}
	if err := s.CreateError(ctx, &owned); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListErrors(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(2, len(got)); diff != "" {
		t.Fatalf("error count (-want +got):\n%s", diff)
	}
	for _, e := range got {
		if e.Resolved {
			t.Errorf("error %d should default to unresolved", e.ID)
		}
	}

	if err := s.ResolveError(ctx, owned.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err = s.ListErrors(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	resolved := 0
	for _, e := range got {
		if e.Resolved {
			resolved++
		}
	}
	if diff := cmp.Diff(1, resolved); diff != "" {
		t.Errorf("resolved count (-want +got):\n%s", diff)
	}

	if err := s.ResolveError(ctx, 9999); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("resolving unknown id: want sql.ErrNoRows, got %v", err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	now := time.Now().UTC()
	forwardedAt := []time.Time{
		now.Add(-1 * time.Hour),
		now.Add(-2 * time.Hour),
		now.Add(-48 * time.Hour),
	}
	for i, ts := range forwardedAt {
		msg := model.ForwardedMessage{
			MessageID:       int64(300 + i),
			SourceChat:      "@source",
			DestinationChat: "@dest",
			MessageText:     "msg",
			ForwardedAt:     ts,
		}
		if err := s.CreateMessage(ctx, &msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	seedSession(t, s, "bot_active")
	stopped := seedSession(t, s, "bot_stopped")
	if err := s.CloseSession(ctx, stopped.SessionID, now); err != nil {
		t.Fatalf("close session: %v", err)
	}

	e := model.ErrorLog{ErrorType: "forwarding", ErrorMessage: "boom"}
	if err := s.CreateError(ctx, &e); err != nil {
		t.Fatalf("create error: %v", err)
	}

	got, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := &model.Stats{
		TotalMessagesForwarded: 3,
		TotalSessions:          2,
		ActiveSessions:         1,
		TotalErrors:            1,
		UnresolvedErrors:       1,
		MessagesLast24h:        2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	msg := model.ForwardedMessage{
		MessageID:       400,
		SourceChat:      "@source",
		DestinationChat: "@dest",
		MessageText:     "exact text survives",
		HasMedia:        true,
		MediaType:       strptr("video"),
		KeywordsMatched: strptr("text,survives"),
	}
	if err := s.CreateMessage(ctx, &msg); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListMessages(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]model.ForwardedMessage{msg}, got, ignoreMessageTS); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
