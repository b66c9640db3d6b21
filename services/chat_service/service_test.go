package chat_service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycode/mcp-chat/core"
)

type fakeProcessor struct {
	answer  core.Answer
	err     error
	queries []string
}

func (f *fakeProcessor) Process(_ context.Context, query string) (core.Answer, error) {
	f.queries = append(f.queries, query)
	return f.answer, f.err
}

type fakeCatalog struct{}

func (fakeCatalog) Catalog() []core.ToolDescriptor {
	return []core.ToolDescriptor{{Name: "add", Description: "Add two numbers", Endpoint: "math"}}
}

func (fakeCatalog) Endpoints() []core.EndpointInfo {
	return []core.EndpointInfo{{ID: "math", Address: "http://localhost:8050/mcp", Live: true, Tools: []string{"add"}}}
}

func newTestRouter(processor *fakeProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewChatService(processor, fakeCatalog{}), http.NotFoundHandler())
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQueryReturnsAnswer(t *testing.T) {
	processor := &fakeProcessor{answer: core.Answer{Text: "2 + 7 = 9", Rounds: 1}}
	router := newTestRouter(processor)

	w := do(router, http.MethodPost, "/v1/query", `{"query":"what is 2+7"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2 + 7 = 9", resp.Answer)
	assert.Equal(t, 1, resp.Rounds)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, []string{"what is 2+7"}, processor.queries)
}

func TestQueryRequiresQuery(t *testing.T) {
	processor := &fakeProcessor{}
	router := newTestRouter(processor)

	w := do(router, http.MethodPost, "/v1/query", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, processor.queries)
}

func TestQueryModelFailureIsBadGateway(t *testing.T) {
	processor := &fakeProcessor{err: &core.ModelCallError{Round: 0, Cause: errors.New("upstream down")}}
	router := newTestRouter(processor)

	w := do(router, http.MethodPost, "/v1/query", `{"query":"hello"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "model call failed in round 0: upstream down", resp.Error)
}

func TestQueryOtherFailureIsInternalError(t *testing.T) {
	router := newTestRouter(&fakeProcessor{err: context.Canceled})

	w := do(router, http.MethodPost, "/v1/query", `{"query":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListServersAndTools(t *testing.T) {
	router := newTestRouter(&fakeProcessor{})

	w := do(router, http.MethodGet, "/v1/servers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var servers struct {
		Servers []core.EndpointInfo `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &servers))
	require.Len(t, servers.Servers, 1)
	assert.Equal(t, "math", servers.Servers[0].ID)
	assert.True(t, servers.Servers[0].Live)

	w = do(router, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tools struct {
		Tools []core.ToolDescriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tools))
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, "add", tools.Tools[0].Name)
}

func TestHealthz(t *testing.T) {
	w := do(newTestRouter(&fakeProcessor{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
