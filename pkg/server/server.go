package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/courseguide/pkg/metrics"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/usecase/chat"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
)

const (
	msgEmptyMessage          = "El mensaje es obligatorio"
	msgInvalidConversationID = "El identificador de conversación no es válido"
	msgQuota        = "Se ha alcanzado el límite de consultas. Inténtalo de nuevo en unos minutos."
)

// Server exposes the chat service over HTTP.
type Server struct {
	chat    *chat.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
	router  *gin.Engine

	providerName   string
	credentialName string
	allowOrigin    string
}

type Option func(*Server)

// WithProvider sets the provider and credential names shown in error messages
func WithProvider(providerName, credentialName string) Option {
	return func(s *Server) {
		s.providerName = providerName
		s.credentialName = credentialName
	}
}

// WithMetrics enables GET /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowOrigin sets Access-Control-Allow-Origin. Empty disables CORS headers.
func WithAllowOrigin(origin string) Option {
	return func(s *Server) {
		s.allowOrigin = origin
	}
}

func New(uc *chat.Service, opts ...Option) *Server {
	s := &Server{
		chat:           uc,
		logger:         logging.Default(),
		providerName:   "Gemini",
		credentialName: "GEMINI_API_KEY",
		allowOrigin:    "*",
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	if s.allowOrigin != "" {
		router.Use(cors(s.allowOrigin))
	}

	router.GET("/health", s.handleHealth)
	router.POST("/chat", s.handleChat)
	router.POST("/api/chat", s.handleChat)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler, for http.Server or httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type chatResponse struct {
	Answer         string   `json:"answer"`
	ConversationID string   `json:"conversationId"`
	SourcesUsed    []string `json:"sourcesUsed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"configured": s.chat.Configured(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.From(c.Request.Context()).Warn("invalid chat request", "error", err)
		msg := msgEmptyMessage
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "conversationId" {
			msg = msgInvalidConversationID
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgEmptyMessage})
		return
	}

	if !s.chat.Configured() {
		s.writeError(c, model.ErrMissingCredential)
		return
	}

	out, err := s.chat.Converse(c.Request.Context(), chat.ConverseInput{
		Text:           message,
		ConversationID: model.ConversationID(req.ConversationID),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Answer:         out.Answer,
		ConversationID: out.ConversationID.String(),
		SourcesUsed:    out.SourcesUsed,
	})
}

// writeError maps a failed exchange to a status code and a message the chat
// UI shows as an error bubble.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := model.Classify(err)
	status, msg := s.errorResponse(kind, err)

	logger := logging.From(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("chat request failed", "error", err, "kind", kind.String())
	} else {
		logger.Warn("chat request rejected", "error", err, "kind", kind.String())
	}

	c.JSON(status, errorResponse{Error: msg})
}

func (s *Server) errorResponse(kind model.ErrorKind, err error) (int, string) {
	switch kind {
	case model.ErrorKindValidation:
		return http.StatusBadRequest, msgEmptyMessage
	case model.ErrorKindConfiguration:
		return http.StatusInternalServerError,
			fmt.Sprintf("%s no está configurado en el servidor. Contacta al administrador.", s.credentialName)
	case model.ErrorKindUpstreamAuth:
		return http.StatusServiceUnavailable,
			fmt.Sprintf("La API Key de %s no es válida o ha sido revocada. Contacta al administrador.", s.providerName)
	case model.ErrorKindUpstreamQuota:
		return http.StatusTooManyRequests, msgQuota
	default:
		return http.StatusInternalServerError, "Error al procesar tu consulta: " + rootCause(err).Error()
	}
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
