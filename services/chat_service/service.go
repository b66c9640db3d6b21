package chat_service

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"polycode/mcp-chat/core"
)

type QueryProcessor interface {
	Process(ctx context.Context, query string) (core.Answer, error)
}

type ToolCatalog interface {
	Catalog() []core.ToolDescriptor
	Endpoints() []core.EndpointInfo
}

type QueryRequest struct {
	Query string `json:"query" validate:"required"`
}

type QueryResponse struct {
	ID     string     `json:"id"`
	Answer string     `json:"answer"`
	Rounds int        `json:"rounds"`
	Stats  core.Stats `json:"stats"`
}

type ErrorResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type ChatService struct {
	processor QueryProcessor
	catalog   ToolCatalog
}

func NewChatService(processor QueryProcessor, catalog ToolCatalog) *ChatService {
	return &ChatService{
		processor: processor,
		catalog:   catalog,
	}
}

func (s *ChatService) RegisterRoutes(router gin.IRouter) {
	router.POST("/query", s.Query)
	router.GET("/servers", s.ListServers)
	router.GET("/tools", s.ListTools)
}

func (s *ChatService) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	id := uuid.NewString()
	answer, err := s.processor.Process(c.Request.Context(), req.Query)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusInternalServerError
		var modelErr *core.ModelCallError
		if errors.As(err, &modelErr) {
			status = http.StatusBadGateway
		}
		c.JSON(status, ErrorResponse{ID: id, Error: err.Error()})
		return
	}

	log.Info().Str("query_id", id).Int("rounds", answer.Rounds).Msg("Query answered")
	c.JSON(http.StatusOK, QueryResponse{
		ID:     id,
		Answer: answer.Text,
		Rounds: answer.Rounds,
		Stats:  answer.Stats,
	})
}

func (s *ChatService) ListServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"servers": s.catalog.Endpoints()})
}

func (s *ChatService) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.catalog.Catalog()})
}
