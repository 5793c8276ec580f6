package httpadapter

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PabloGalante/chatflow/internal/app/agentflow"
	"github.com/PabloGalante/chatflow/internal/app/projections"
	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

// Pipeline processes one new-message trigger.
type Pipeline interface {
	HandleNewMessage(ctx context.Context, ev domain.TriggerEvent) *agentflow.Report
}

type Server struct {
	engine      *gin.Engine
	pipeline    Pipeline
	projections *projections.Service
	chats       domain.ChatWriter
	now         func() time.Time

	// detached ingest pipelines
	inflight sync.WaitGroup
}

// NewServer builds the gin engine. chats may be nil, which disables the
// ingest endpoint.
func NewServer(pipeline Pipeline, projSvc *projections.Service, chats domain.ChatWriter) *Server {
	s := &Server{
		pipeline:    pipeline,
		projections: projSvc,
		chats:       chats,
		now:         time.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(withRequestID())
	r.Use(withLogging())
	r.Use(withCORS())
	r.Use(requestSizeLimiter(1 << 20))

	r.GET("/healthz", s.handleHealthz)

	// POST /triggers/messages → run the pipeline for a trigger payload
	r.POST("/triggers/messages", s.handleTrigger)

	// POST /ingest/:collection/:chatId/messages → store a message, then trigger
	r.POST("/ingest/:collection/:chatId/messages", s.handleIngest)

	chatRoutes := r.Group("/chats/:chatId")
	{
		chatRoutes.GET("/priorities", s.handleChatPriorities)
		chatRoutes.GET("/calendar", s.handleChatCalendar)
	}

	userRoutes := r.Group("/users/:userId")
	{
		userRoutes.GET("/priorities", s.handleUserPriorities)
		userRoutes.GET("/calendar", s.handleUserCalendar)
	}

	s.engine = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.engine.ServeHTTP(w, req)
}

// Wait blocks until every pipeline dispatched by the ingest endpoint has
// finished. Call it after the HTTP server stopped accepting requests and
// before closing the store.
func (s *Server) Wait() {
	s.inflight.Wait()
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type ingestMessageRequest struct {
	ID        string `json:"id,omitempty"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"` // ms; defaults to now
}

type ingestMessageResponse struct {
	MessageID string            `json:"messageId"`
	Report    *agentflow.Report `json:"report,omitempty"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTrigger(c *gin.Context) {
	var ev domain.TriggerEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if msg := validateTrigger(ev); msg != "" {
		badRequest(c, msg)
		return
	}

	// pipeline failures are reported, never turned into HTTP errors
	report := s.pipeline.HandleNewMessage(c.Request.Context(), ev)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleIngest(c *gin.Context) {
	if s.chats == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "ingest is not available for this backend"})
		return
	}

	collection := domain.CollectionType(c.Param("collection"))
	if !collection.Valid() {
		badRequest(c, "collection must be chats or groups")
		return
	}

	var req ingestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SenderID) == "" {
		badRequest(c, "senderId is required")
		return
	}

	msg := &domain.Message{
		ID:         domain.MessageID(req.ID),
		ChatID:     domain.ChatID(c.Param("chatId")),
		Collection: collection,
		SenderID:   domain.UserID(req.SenderID),
		Text:       req.Text,
		ImageURL:   req.ImageURL,
		Status:     req.Status,
		CreatedAt:  s.now().UTC(),
	}
	if msg.ID == "" {
		msg.ID = domain.MessageID(uuid.NewString())
	}
	if req.CreatedAt > 0 {
		msg.CreatedAt = domain.UnixMillis(req.CreatedAt)
	}

	if err := s.chats.SaveMessage(c.Request.Context(), msg); err != nil {
		internalError(c, err)
		return
	}

	ev := domain.TriggerFromMessage(msg)

	if c.Query("wait") == "true" {
		report := s.pipeline.HandleNewMessage(c.Request.Context(), ev)
		c.JSON(http.StatusCreated, ingestMessageResponse{MessageID: string(msg.ID), Report: report})
		return
	}

	// like an on-create trigger, the pipeline outlives the request
	ctx := context.WithoutCancel(c.Request.Context())
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.pipeline.HandleNewMessage(ctx, ev)
	}()

	c.JSON(http.StatusAccepted, ingestMessageResponse{MessageID: string(msg.ID)})
}

func (s *Server) handleChatPriorities(c *gin.Context) {
	doc, err := s.projections.ChatPriorities(c.Request.Context(), domain.ChatID(c.Param("chatId")))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleChatCalendar(c *gin.Context) {
	doc, err := s.projections.ChatCalendar(c.Request.Context(), domain.ChatID(c.Param("chatId")))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleUserPriorities(c *gin.Context) {
	doc, err := s.projections.UserPriorities(c.Request.Context(), domain.UserID(c.Param("userId")))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleUserCalendar(c *gin.Context) {
	doc, err := s.projections.UserCalendar(c.Request.Context(), domain.UserID(c.Param("userId")))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func validateTrigger(ev domain.TriggerEvent) string {
	switch {
	case ev.MessageID == "":
		return "messageId is required"
	case ev.ChatID == "":
		return "chatId is required"
	case !ev.CollectionType.Valid():
		return "collectionType must be chats or groups"
	case ev.MessageData.SenderID == "":
		return "messageData.senderId is required"
	}
	return ""
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func internalError(c *gin.Context, err error) {
	observability.LoggerFromContext(c.Request.Context()).Error().Err(err).
		Str("path", c.FullPath()).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
