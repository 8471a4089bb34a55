// Package server is a reference implementation of the conversation service the
// chat client talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SwapChat/internal/backend"
	"SwapChat/internal/session"
	"SwapChat/internal/storage"
)

// Repository is the persistence the service needs
type Repository interface {
	Ping(ctx context.Context) error
	CreateConversation(ctx context.Context, userA, userB int64) (storage.Conversation, error)
	GetConversation(ctx context.Context, id int64) (storage.Conversation, error)
	ListConversations(ctx context.Context, userID int64) ([]storage.Conversation, error)
	CreateMessage(ctx context.Context, msg session.Message) (session.Message, error)
	GetMessage(ctx context.Context, id int64) (session.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]session.Message, error)
}

// Options configures a Server
type Options struct {
	JWTSecret string // empty disables authentication
	Logger    *slog.Logger
}

// Server serves the conversation API
type Server struct {
	repo   Repository
	logger *slog.Logger
	engine *gin.Engine
}

// New creates a new Server backed by repo
func New(repo Repository, opts Options) (*Server, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{repo: repo, logger: logger}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), metricsMiddleware())

	engine.GET("/healthz", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/", authMiddleware([]byte(opts.JWTSecret)))
	api.GET("/conversations", s.listConversations)
	api.POST("/conversations", s.createConversation)
	api.GET("/conversations/:id", s.getConversation)
	api.GET("/conversations/:id/messages", s.listMessages)
	api.POST("/messages", s.createMessage)
	api.GET("/messages/:id", s.getMessage)

	s.engine = engine
	return s, nil
}

// Handler returns the HTTP handler of the service
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("conversation service listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down conversation service")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	if err := s.repo.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listConversations(c *gin.Context) {
	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.unprocessable(c, "user_id must be a positive integer")
			return
		}
		userID = id
	}

	conversations, err := s.repo.ListConversations(c.Request.Context(), userID)
	if err != nil {
		s.internalError(c, err)
		return
	}

	out := make([]backend.ConversationRead, len(conversations))
	for i, conv := range conversations {
		out[i] = toConversationRead(conv)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createConversation(c *gin.Context) {
	var req backend.ConversationCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.unprocessable(c, "invalid JSON body")
		return
	}
	if req.UserAID <= 0 || req.UserBID <= 0 {
		s.unprocessable(c, "user ids must be positive integers")
		return
	}
	if req.UserAID == req.UserBID {
		s.unprocessable(c, "user_a_id and user_b_id must be different.")
		return
	}

	conv, err := s.repo.CreateConversation(c.Request.Context(), req.UserAID, req.UserBID)
	if errors.Is(err, storage.ErrConflict) {
		c.JSON(http.StatusConflict, backend.NewErrorResponse(err.Error()))
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	s.logger.Info("conversation created", "conversation_id", conv.ID)
	c.JSON(http.StatusOK, toConversationRead(conv))
}

func (s *Server) getConversation(c *gin.Context) {
	conv, ok := s.lookupConversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toConversationRead(conv))
}

func (s *Server) listMessages(c *gin.Context) {
	conv, ok := s.lookupConversation(c)
	if !ok {
		return
	}

	messages, err := s.repo.ListMessages(c.Request.Context(), conv.ID)
	if err != nil {
		s.internalError(c, err)
		return
	}

	out := make([]backend.MessageRead, len(messages))
	for i, msg := range messages {
		out[i] = backend.NewMessageRead(msg)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createMessage(c *gin.Context) {
	var req backend.MessageCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.unprocessable(c, "invalid JSON body")
		return
	}

	msgType := session.MessageType(req.MessageType)
	if msgType == "" {
		msgType = session.MessageTypeText
	}
	switch {
	case req.ConversationID <= 0:
		s.unprocessable(c, "conversation_id must be a positive integer")
		return
	case req.SenderID <= 0:
		s.unprocessable(c, "sender_id must be a positive integer")
		return
	case req.Body == "":
		s.unprocessable(c, "body must not be empty")
		return
	case !msgType.Valid():
		s.unprocessable(c, "message_type must be one of TEXT, IMAGE, SYSTEM")
		return
	}

	ctx := c.Request.Context()
	conv, err := s.repo.GetConversation(ctx, req.ConversationID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, backend.NewErrorResponse("Conversation not found"))
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !conv.HasParticipant(req.SenderID) {
		s.unprocessable(c, "sender is not a participant of this conversation")
		return
	}

	msg := session.Message{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Type:           msgType,
		Body:           req.Body,
	}
	if req.AttachmentURL != nil {
		msg.AttachmentURL = *req.AttachmentURL
	}

	stored, err := s.repo.CreateMessage(ctx, msg)
	if err != nil {
		s.internalError(c, err)
		return
	}

	messagesCreated.Inc()
	s.logger.Info("message created", "conversation_id", stored.ConversationID, "message_id", stored.ID)
	c.JSON(http.StatusOK, backend.NewMessageRead(stored))
}

func (s *Server) getMessage(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	msg, err := s.repo.GetMessage(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, backend.NewErrorResponse("Message not found"))
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, backend.NewMessageRead(msg))
}

func (s *Server) lookupConversation(c *gin.Context) (storage.Conversation, bool) {
	id, ok := s.pathID(c)
	if !ok {
		return storage.Conversation{}, false
	}

	conv, err := s.repo.GetConversation(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, backend.NewErrorResponse("Conversation not found"))
		return storage.Conversation{}, false
	}
	if err != nil {
		s.internalError(c, err)
		return storage.Conversation{}, false
	}
	return conv, true
}

func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.unprocessable(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) unprocessable(c *gin.Context, detail string) {
	c.JSON(http.StatusUnprocessableEntity, backend.NewErrorResponse(detail))
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, backend.NewErrorResponse("internal server error"))
}

func toConversationRead(conv storage.Conversation) backend.ConversationRead {
	return backend.ConversationRead{
		ConversationID: conv.ID,
		UserAID:        conv.UserAID,
		UserBID:        conv.UserBID,
		CreatedAt:      conv.CreatedAt,
		LastMessageAt:  conv.LastMessageAt,
	}
}
