// Package chat coordinates the message store, the sync client and the view for
// one conversation at a time.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"SwapChat/internal/cache"
	"SwapChat/internal/session"
	"SwapChat/internal/store"
	"SwapChat/internal/view"
)

const instrumentationName = "SwapChat/internal/chat"

var (
	// ErrBusy is returned when a send is attempted while another one is in flight
	ErrBusy = errors.New("a message is already being sent")

	// ErrNoSession is returned when no conversation has been loaded yet
	ErrNoSession = errors.New("no conversation loaded")

	// ErrInvalidSession is returned when conversation or user ids are not positive
	ErrInvalidSession = errors.New("conversation and user ids must be positive integers")
)

// Transport loads and submits messages
type Transport interface {
	Load(ctx context.Context, conversationID int64) ([]session.Message, error)
	Send(ctx context.Context, msg session.Message) (session.Message, error)
}

// Options configures a Controller
type Options struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

type pendingSend struct {
	handle store.Handle
	epoch  uint64
	after  int64 // highest confirmed id when the send started
	known  bool  // after comes from a successful load
}

// committedIn reports whether msgs already holds the message being sent
func (p *pendingSend) committedIn(msgs []session.Message) bool {
	if !p.known {
		return false
	}
	draft := p.handle.Message()
	for _, m := range msgs {
		if m.ID > p.after && m.SenderID == draft.SenderID && m.Body == draft.Body {
			return true
		}
	}
	return false
}

// Controller owns the session and drives load, send and render.
// It is safe for concurrent use; its lock is never held across network calls.
type Controller struct {
	client Transport
	binder *view.Binder
	logger *slog.Logger
	tracer trace.Tracer

	loads metric.Int64Counter
	sends metric.Int64Counter
	stale metric.Int64Counter

	mu       sync.Mutex
	store    *store.Store
	sess     *session.Session
	epoch    uint64 // bumped on every session change
	inflight *pendingSend
	rendered cache.RenderCache
	loaded   bool // a load succeeded in the current epoch

	// loads are applied in issue order; older responses are dropped
	loadSeq    uint64
	appliedSeq uint64
}

// NewController creates a new Controller
func NewController(client Transport, sink view.Sink, opts Options) (*Controller, error) {
	if client == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	loads, err := meter.Int64Counter("swapchat.loads", metric.WithDescription("Conversation loads by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create loads counter: %w", err)
	}
	sends, err := meter.Int64Counter("swapchat.sends", metric.WithDescription("Message sends by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sends counter: %w", err)
	}
	stale, err := meter.Int64Counter("swapchat.stale_responses", metric.WithDescription("Responses discarded as stale or superseded"))
	if err != nil {
		return nil, fmt.Errorf("failed to create stale counter: %w", err)
	}

	return &Controller{
		client: client,
		binder: view.NewBinder(sink),
		logger: logger,
		tracer: tracer,
		loads:  loads,
		sends:  sends,
		stale:  stale,
		store:  store.New(0),
	}, nil
}

// Start begins a session and loads its conversation. Any previous session,
// including an in-flight send, is abandoned.
func (c *Controller) Start(ctx context.Context, sess session.Session) error {
	if sess.ConversationID <= 0 || sess.LocalUserID <= 0 {
		return c.surface(ErrInvalidSession)
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.sess = &sess
	c.store.Reset(sess.ConversationID)
	c.inflight = nil
	c.loaded = false
	c.rendered.Invalidate()
	c.renderLocked()
	c.mu.Unlock()

	c.logger.Info("started session", "conversation_id", sess.ConversationID, "local_user_id", sess.LocalUserID)
	c.binder.Notice("Loading...")
	return c.load(ctx, sess, epoch)
}

// SwitchConversation starts a new session for conversationID keeping the local identity
func (c *Controller) SwitchConversation(ctx context.Context, conversationID int64) error {
	sess, ok := c.Session()
	if !ok {
		return c.surface(ErrNoSession)
	}
	sess.ConversationID = conversationID
	return c.Start(ctx, sess)
}

// Reload fetches the active conversation again
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return c.surface(ErrNoSession)
	}
	sess, epoch := *c.sess, c.epoch
	c.mu.Unlock()

	return c.load(ctx, sess, epoch)
}

// ComposeAndSend appends body as a provisional message, submits it and
// reconciles the result. Only one send may be in flight at a time.
func (c *Controller) ComposeAndSend(ctx context.Context, body string) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return c.surface(ErrNoSession)
	}
	if c.inflight != nil {
		c.mu.Unlock()
		c.sends.Add(ctx, 1, outcome("busy"))
		return c.surface(ErrBusy)
	}

	sess, epoch := *c.sess, c.epoch
	h, err := c.store.AppendProvisional(body, sess.LocalUserID)
	if err != nil {
		c.mu.Unlock()
		return c.surface(err)
	}
	p := &pendingSend{handle: h, epoch: epoch, after: maxID(c.store.Snapshot()), known: c.loaded}
	c.inflight = p
	draft := h.Message()
	c.renderLocked()
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "compose_and_send",
		trace.WithAttributes(
			attribute.Int64("conversation.id", sess.ConversationID),
			attribute.String("message.local_id", h.LocalID()),
		))
	defer span.End()

	confirmed, sendErr := c.client.Send(ctx, draft)

	c.mu.Lock()
	if c.inflight == p {
		c.inflight = nil
	}

	if epoch != c.epoch {
		c.mu.Unlock()
		c.stale.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "send")))
		c.logger.Info("discarding send response for inactive conversation",
			"conversation_id", sess.ConversationID, "local_id", h.LocalID())
		if sendErr != nil {
			return fmt.Errorf("failed to send message: %w", sendErr)
		}
		return nil
	}

	if sendErr != nil {
		c.store.Rollback(h)
		c.renderLocked()
		c.mu.Unlock()

		span.RecordError(sendErr)
		span.SetStatus(codes.Error, sendErr.Error())
		c.sends.Add(ctx, 1, outcome("failed"))
		c.logger.Error("failed to send message", "conversation_id", sess.ConversationID, "local_id", h.LocalID(), "error", sendErr)
		return c.surface(fmt.Errorf("failed to send message: %w", sendErr))
	}

	if err := c.store.Confirm(h, confirmed); err != nil {
		c.logger.Warn("could not confirm provisional message", "local_id", h.LocalID(), "error", err)
	}
	// loads issued before the confirmation cannot be newer than it
	c.appliedSeq = c.loadSeq
	c.renderLocked()
	c.mu.Unlock()

	c.sends.Add(ctx, 1, outcome("confirmed"))
	c.logger.Info("message confirmed", "conversation_id", sess.ConversationID, "message_id", confirmed.ID, "local_id", h.LocalID())

	// the confirmed record alone does not include what the other party sent meanwhile
	if err := c.load(ctx, sess, epoch); err != nil {
		return fmt.Errorf("message sent but refresh failed: %w", err)
	}
	return nil
}

// Dispose ends the session. Late responses are discarded.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.sess = nil
	c.store.Reset(0)
	c.inflight = nil
	c.loaded = false
	c.rendered.Invalidate()
	c.logger.Info("disposed session")
}

// Session returns the active session
func (c *Controller) Session() (session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return session.Session{}, false
	}
	return *c.sess, true
}

// Snapshot returns the messages currently known for the active conversation
func (c *Controller) Snapshot() []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Sending reports whether a send is in flight
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Controller) load(ctx context.Context, sess session.Session, epoch uint64) error {
	ctx, span := c.tracer.Start(ctx, "load_conversation",
		trace.WithAttributes(attribute.Int64("conversation.id", sess.ConversationID)))
	defer span.End()

	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	msgs, err := c.client.Load(ctx, sess.ConversationID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		c.stale.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "load")))
		c.logger.Info("discarding load response for inactive conversation", "conversation_id", sess.ConversationID)
		return nil
	}
	if seq <= c.appliedSeq {
		c.stale.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "load")))
		c.logger.Debug("discarding superseded load response", "conversation_id", sess.ConversationID, "seq", seq)
		return nil
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.loads.Add(ctx, 1, outcome("failed"))
		c.logger.Error("failed to load conversation", "conversation_id", sess.ConversationID, "error", err)
		return c.surface(fmt.Errorf("failed to load conversation %d: %w", sess.ConversationID, err))
	}

	c.store.Replace(msgs)
	c.appliedSeq = seq
	c.loaded = true
	if p := c.inflight; p != nil && p.epoch == epoch {
		if p.committedIn(msgs) {
			c.logger.Debug("in-flight message already stored by the service", "local_id", p.handle.LocalID())
		} else {
			c.store.Restore(p.handle)
		}
	}
	c.renderLocked()

	c.loads.Add(ctx, 1, outcome("ok"))
	c.logger.Debug("loaded conversation", "conversation_id", sess.ConversationID, "count", len(msgs))
	return nil
}

func (c *Controller) renderLocked() {
	if c.sess == nil {
		return
	}
	snap := c.store.Snapshot()
	if !c.rendered.Changed(cache.Fingerprint(*c.sess, snap)) {
		c.logger.Debug("render skipped, view unchanged", "conversation_id", c.sess.ConversationID)
		return
	}
	c.binder.Render(*c.sess, snap)
}

// surface shows err to the user and returns it unchanged
func (c *Controller) surface(err error) error {
	c.binder.Notice(err.Error())
	return err
}

func maxID(msgs []session.Message) int64 {
	var highest int64
	for _, m := range msgs {
		if m.ID > highest {
			highest = m.ID
		}
	}
	return highest
}

func outcome(v string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", v))
}
