package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"SwapChat/internal/backend"
	"SwapChat/internal/session"
)

const instrumentationName = "SwapChat/internal/syncclient"

var (
	// ErrNetwork is returned when the service could not be reached or failed to answer
	ErrNetwork = errors.New("network error")

	// ErrDecode is returned when a response is not well-formed
	ErrDecode = errors.New("malformed response")

	// ErrRejected is matched by every *RejectedError
	ErrRejected = errors.New("rejected by service")
)

// RejectedError reports a write the service refused as invalid
type RejectedError struct {
	StatusCode int
	Detail     string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("rejected by service: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("rejected by service: HTTP %d: %s", e.StatusCode, e.Detail)
}

// Is makes errors.Is(err, ErrRejected) hold for any RejectedError
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Token      string        // sent as a bearer token when set
	Timeout    time.Duration // zero leaves the transport default
	HTTPClient *http.Client  // optional transport
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Meter      metric.Meter
}

// Client talks to the conversation service
type Client struct {
	http     *resty.Client
	logger   *slog.Logger
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

// New creates a new Client for the service at opts.BaseURL
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
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

	duration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "SwapChat/1.0")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	logger.Info("created sync client", "url", opts.BaseURL)
	return &Client{
		http:     rc,
		logger:   logger,
		tracer:   tracer,
		duration: duration,
	}, nil
}

// Load fetches the full ordered message list of a conversation.
// It does not retry.
func (c *Client) Load(ctx context.Context, conversationID int64) ([]session.Message, error) {
	ctx, span := c.tracer.Start(ctx, "load_messages",
		trace.WithAttributes(attribute.Int64("conversation.id", conversationID)))
	defer span.End()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("conversationId", strconv.FormatInt(conversationID, 10)).
		Get("/conversations/{conversationId}/messages")
	c.recordDuration(ctx, "load", start, resp)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("%w: failed to load messages: %w", ErrNetwork, err))
	}
	if !resp.IsSuccess() {
		return nil, c.fail(span, fmt.Errorf("%w: failed to load messages: HTTP %d: %s",
			ErrNetwork, resp.StatusCode(), errorDetail(resp.Body())))
	}

	messages, err := decodeMessages(resp.Body(), conversationID)
	if err != nil {
		return nil, c.fail(span, err)
	}

	span.SetAttributes(attribute.Int("messages.count", len(messages)))
	c.logger.Debug("loaded messages", "conversation_id", conversationID, "count", len(messages))
	return messages, nil
}

// Send submits a new message and returns the server-confirmed record
func (c *Client) Send(ctx context.Context, msg session.Message) (session.Message, error) {
	ctx, span := c.tracer.Start(ctx, "send_message",
		trace.WithAttributes(
			attribute.Int64("conversation.id", msg.ConversationID),
			attribute.Int64("sender.id", msg.SenderID),
		))
	defer span.End()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(backend.NewMessageCreate(msg)).
		Post("/messages")
	c.recordDuration(ctx, "send", start, resp)
	if err != nil {
		return session.Message{}, c.fail(span, fmt.Errorf("%w: failed to send message: %w", ErrNetwork, err))
	}

	switch code := resp.StatusCode(); {
	case code >= http.StatusInternalServerError:
		return session.Message{}, c.fail(span, fmt.Errorf("%w: failed to send message: HTTP %d: %s",
			ErrNetwork, code, errorDetail(resp.Body())))
	case resp.IsError():
		return session.Message{}, c.fail(span, &RejectedError{StatusCode: code, Detail: errorDetail(resp.Body())})
	case !resp.IsSuccess():
		return session.Message{}, c.fail(span, fmt.Errorf("%w: failed to send message: unexpected HTTP %d", ErrNetwork, code))
	}

	var rec backend.MessageRead
	if err := json.Unmarshal(resp.Body(), &rec); err != nil {
		return session.Message{}, c.fail(span, fmt.Errorf("%w: failed to unmarshal message: %w", ErrDecode, err))
	}
	if err := rec.Validate(); err != nil {
		return session.Message{}, c.fail(span, fmt.Errorf("%w: %w", ErrDecode, err))
	}

	confirmed := rec.ToMessage(msg.CreatedOrder)
	span.SetAttributes(attribute.Int64("message.id", confirmed.ID))
	c.logger.Debug("sent message", "conversation_id", confirmed.ConversationID, "message_id", confirmed.ID)
	return confirmed, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn("sync request failed", "error", err)
	return err
}

func (c *Client) recordDuration(ctx context.Context, op string, start time.Time, resp *resty.Response) {
	attrs := []attribute.KeyValue{attribute.String("operation", op)}
	if resp != nil && resp.RawResponse != nil {
		attrs = append(attrs, attribute.Int("http.status_code", resp.StatusCode()))
	}
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
}

func decodeMessages(body []byte, conversationID int64) ([]session.Message, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of messages", ErrDecode)
	}

	var records []backend.MessageRead
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal messages: %w", ErrDecode, err)
	}

	messages := make([]session.Message, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrDecode, i, err)
		}
		if *rec.ConversationID != conversationID {
			return nil, fmt.Errorf("%w: record %d belongs to conversation %d", ErrDecode, i, *rec.ConversationID)
		}
		messages[i] = rec.ToMessage(i)
	}
	return messages, nil
}

func errorDetail(body []byte) string {
	var er backend.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && len(er.Detail) > 0 {
		return er.Message()
	}
	return string(bytes.TrimSpace(body))
}
