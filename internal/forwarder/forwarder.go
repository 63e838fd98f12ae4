// Package forwarder implements the forwarding run lifecycle and the control
// surface that serializes operator intent against it.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"autoforward_bot/internal/config"
	"autoforward_bot/internal/model"
	"autoforward_bot/internal/storage"
	"autoforward_bot/internal/telegram"
)

// State is the lifecycle phase of a Forwarder. Stopped and Failed are
// terminal: a new run requires a new Forwarder.
type State string

// Lifecycle states.
const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRunning        State = "running"
	StateStopped        State = "stopped"
	StateFailed         State = "failed"
)

// ClientFactory opens an authorized platform client for a credential token.
type ClientFactory func(token string) (telegram.Client, error)

// RunError is one entry of the in-memory rolling error list.
type RunError struct {
	Time    time.Time `json:"time"`
	Message string    `json:"error"`
}

// Stats is a point-in-time snapshot of a forwarder. Reading it never blocks
// the run and never mutates anything.
type Stats struct {
	State             State
	Running           bool
	Authenticated     bool
	MessagesReceived  int64
	MessagesForwarded int64
	LastMessageTime   *time.Time
	StartTime         *time.Time
	RecentErrors      []RunError
	SourceChat        string
	DestinationChat   string
	Keywords          []string
	ForwardMedia      bool
	DelaySeconds      int
}

const maxRecentErrors = 20

// Forwarder executes one end-to-end forwarding run and accounts for every
// message it sees. Instances are single-use.
type Forwarder struct {
	cfg   *config.Config
	store storage.Storage // nil when the database is unavailable
	dial  ClientFactory
	log   *slog.Logger

	quit     chan struct{}
	stopOnce sync.Once

	mu            sync.Mutex
	state         State
	authenticated bool
	client        telegram.Client
	sessionID     string
	received      int64
	forwarded     int64
	lastMessage   *time.Time
	startedAt     *time.Time
	recentErrors  []RunError
}

// New creates a Forwarder bound to the given configuration and collaborators.
func New(cfg *config.Config, store storage.Storage, dial ClientFactory, log *slog.Logger) *Forwarder {
	return &Forwarder{
		cfg:   cfg,
		store: store,
		dial:  dial,
		log:   log,
		quit:  make(chan struct{}),
		state: StateIdle,
	}
}

// Authenticate verifies credentials and connects the platform client using
// the persisted session artifact. It must succeed before Run.
func (f *Forwarder) Authenticate() error {
	f.setState(StateAuthenticating)

	if f.cfg.APIID == 0 || f.cfg.APIHash == "" || f.cfg.Phone == "" {
		err := newError(KindConfig,
			"TELEGRAM_API_ID, TELEGRAM_API_HASH and TELEGRAM_PHONE must be set", nil)
		f.setState(StateFailed)
		return err
	}

	sess, err := telegram.LoadSessionFile(f.cfg.SessionFile)
	if err != nil {
		werr := newError(KindAuthExpired,
			"session missing or expired, run authsetup to re-authorize", err)
		f.setState(StateFailed)
		return werr
	}
	if sess.APIID != f.cfg.APIID {
		werr := newError(KindAuthExpired,
			fmt.Sprintf("session was authorized for account %d, not %d", sess.APIID, f.cfg.APIID), nil)
		f.setState(StateFailed)
		return werr
	}

	client, err := f.dial(sess.Token)
	if err != nil {
		werr := newError(KindInitialization, "connect to telegram", err)
		f.logErrorRecord(string(KindInitialization), werr)
		f.setState(StateFailed)
		return werr
	}

	f.mu.Lock()
	f.client = client
	f.authenticated = true
	f.state = StateAuthenticated
	f.mu.Unlock()

	f.log.Info("authenticated with existing session", "api_id", sess.APIID)
	return nil
}

// Run resolves both chats, registers the session record, and consumes the
// source chat's event stream until stopped. It blocks for the lifetime of
// the run; per-message failures are logged and never fatal.
func (f *Forwarder) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateAuthenticated {
		state := f.state
		f.mu.Unlock()
		return newError(KindInitialization, fmt.Sprintf("run requires authentication, state is %s", state), nil)
	}
	client := f.client
	f.mu.Unlock()

	srcID, err := client.ResolveChat(ctx, f.cfg.SourceChat)
	if err != nil {
		return f.failStartup("source", f.cfg.SourceChat, err)
	}
	destID, err := client.ResolveChat(ctx, f.cfg.DestinationChat)
	if err != nil {
		return f.failStartup("destination", f.cfg.DestinationChat, err)
	}

	start := time.Now().UTC()
	sessionID := "bot_" + start.Format("20060102_150405")

	f.mu.Lock()
	f.sessionID = sessionID
	f.startedAt = &start
	f.state = StateRunning
	f.mu.Unlock()

	f.createSessionRecord(sessionID, start)

	f.log.Info("forwarding started",
		"session_id", sessionID,
		"source", f.cfg.SourceChat,
		"destination", f.cfg.DestinationChat,
		"keywords", len(f.cfg.Keywords))

	events := client.Subscribe(srcID)

	defer f.finalize()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.quit:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			f.handleEvent(ctx, ev, srcID, destID)
		}
	}
}

// Stop requests teardown of the run. Idempotent; the blocked Run call
// returns shortly after, finalizing the session record on its way out.
func (f *Forwarder) Stop() {
	f.stopOnce.Do(func() {
		close(f.quit)
		f.mu.Lock()
		client := f.client
		f.mu.Unlock()
		if client != nil {
			client.Close()
		}
	})
}

// Active reports whether the forwarder has not yet reached a terminal state.
func (f *Forwarder) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != StateStopped && f.state != StateFailed
}

// Stats returns a snapshot of the forwarder. Never blocks on the run.
func (f *Forwarder) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	recent := make([]RunError, len(f.recentErrors))
	copy(recent, f.recentErrors)

	return Stats{
		State:             f.state,
		Running:           f.state == StateRunning,
		Authenticated:     f.authenticated,
		MessagesReceived:  f.received,
		MessagesForwarded: f.forwarded,
		LastMessageTime:   f.lastMessage,
		StartTime:         f.startedAt,
		RecentErrors:      recent,
		SourceChat:        f.cfg.SourceChat,
		DestinationChat:   f.cfg.DestinationChat,
		Keywords:          f.cfg.Keywords,
		ForwardMedia:      f.cfg.ForwardMedia,
		DelaySeconds:      f.cfg.DelaySeconds,
	}
}

func (f *Forwarder) handleEvent(ctx context.Context, ev telegram.Event, srcID, destID int64) {
	now := time.Now().UTC()

	f.mu.Lock()
	f.received++
	f.lastMessage = &now
	client := f.client
	sessionID := f.sessionID
	f.mu.Unlock()

	f.persist(func(pctx context.Context) error {
		return f.store.RecordReceived(pctx, sessionID, now)
	}, "record received message")

	matched := MatchedKeywords(f.cfg.Keywords, ev.Text)
	if len(f.cfg.Keywords) > 0 && len(matched) == 0 {
		return
	}
	if ev.HasMedia && !f.cfg.ForwardMedia {
		f.log.Debug("media forwarding disabled, skipping", "message_id", ev.MessageID)
		return
	}

	if f.cfg.DelaySeconds > 0 {
		timer := time.NewTimer(time.Duration(f.cfg.DelaySeconds) * time.Second)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		case <-f.quit:
			timer.Stop()
			return
		}
	}

	if err := client.Forward(ctx, destID, srcID, ev.MessageID); err != nil {
		werr := newError(KindForward, fmt.Sprintf("forward message %d", ev.MessageID), err)
		f.log.Error("forward message", "message_id", ev.MessageID, "error", err)
		f.appendRunError(now, werr)
		f.logErrorRecord(string(KindForward), werr)
		return
	}

	f.mu.Lock()
	f.forwarded++
	f.mu.Unlock()

	rec := &model.ForwardedMessage{
		MessageID:       int64(ev.MessageID),
		SourceChat:      f.cfg.SourceChat,
		DestinationChat: f.cfg.DestinationChat,
		MessageText:     truncateRunes(ev.Text, model.StoredTextLimit),
		HasMedia:        ev.HasMedia,
		ForwardedAt:     time.Now().UTC(),
	}
	if ev.MediaType != "" {
		rec.MediaType = &ev.MediaType
	}
	if len(matched) > 0 {
		joined := strings.Join(matched, ",")
		rec.KeywordsMatched = &joined
	}

	f.persist(func(pctx context.Context) error {
		return f.store.CreateMessage(pctx, rec)
	}, "log forwarded message")
	f.persist(func(pctx context.Context) error {
		return f.store.RecordForward(pctx, sessionID, rec.ForwardedAt)
	}, "update session record")

	f.log.Info("forwarded message",
		"message_id", ev.MessageID,
		"source", f.cfg.SourceChat,
		"destination", f.cfg.DestinationChat)
}

func (f *Forwarder) failStartup(side, ref string, err error) error {
	werr := newError(KindChatResolution, fmt.Sprintf("resolve %s chat %q", side, ref), err)
	f.logErrorRecord("startup", werr)
	f.setState(StateFailed)

	f.mu.Lock()
	client := f.client
	f.mu.Unlock()
	if client != nil {
		client.Close()
	}
	return werr
}

func (f *Forwarder) finalize() {
	f.mu.Lock()
	if f.state == StateRunning {
		f.state = StateStopped
	}
	sessionID := f.sessionID
	client := f.client
	f.mu.Unlock()

	if client != nil {
		client.Close()
	}
	if sessionID != "" {
		f.persist(func(pctx context.Context) error {
			return f.store.CloseSession(pctx, sessionID, time.Now().UTC())
		}, "finalize session record")
		f.log.Info("forwarding stopped", "session_id", sessionID)
	}
}

func (f *Forwarder) createSessionRecord(sessionID string, start time.Time) {
	sess := &model.Session{
		SessionID:       sessionID,
		SourceChat:      f.cfg.SourceChat,
		DestinationChat: f.cfg.DestinationChat,
		ForwardMedia:    f.cfg.ForwardMedia,
		DelaySeconds:    f.cfg.DelaySeconds,
		StartedAt:       start,
	}
	if len(f.cfg.Keywords) > 0 {
		joined := strings.Join(f.cfg.Keywords, ",")
		sess.Keywords = &joined
	}
	f.persist(func(pctx context.Context) error {
		return f.store.CreateSession(pctx, sess)
	}, "create session record")
}

// persist runs a storage write, swallowing failures with a local log line:
// record-keeping failures must never become message-handling failures.
func (f *Forwarder) persist(op func(context.Context) error, what string) {
	if f.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := op(ctx); err != nil {
		f.log.Error(what, "error", err)
	}
}

func (f *Forwarder) logErrorRecord(errType string, err error) {
	rec := &model.ErrorLog{
		ErrorType:    errType,
		ErrorMessage: err.Error(),
	}

	f.mu.Lock()
	if f.sessionID != "" {
		sid := f.sessionID
		rec.SessionID = &sid
	}
	f.mu.Unlock()

	var werr *Error
	if errors.As(err, &werr) && werr.Err != nil {
		detail := werr.Err.Error()
		rec.Detail = &detail
	}

	f.persist(func(pctx context.Context) error {
		return f.store.CreateError(pctx, rec)
	}, "log error record")
}

func (f *Forwarder) appendRunError(at time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentErrors = append(f.recentErrors, RunError{Time: at, Message: err.Error()})
	if len(f.recentErrors) > maxRecentErrors {
		f.recentErrors = f.recentErrors[len(f.recentErrors)-maxRecentErrors:]
	}
}

func (f *Forwarder) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
