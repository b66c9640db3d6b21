package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	sum, err := Add(context.Background(), AddInput{A: 2, B: 7})
	require.NoError(t, err)
	assert.Equal(t, "9", sum)

	sum, err = Add(context.Background(), AddInput{A: 0.5, B: 0.25})
	require.NoError(t, err)
	assert.Equal(t, "0.75", sum)
}

func TestGetCurrentTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	out, err := GetCurrentTime(context.Background(), GetCurrentTimeInput{}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:30:00Z", out.CurrentTime)
	assert.Equal(t, "UTC", out.Location)

	out, err = GetCurrentTime(context.Background(), GetCurrentTimeInput{Location: "Asia/Colombo", Format: "15:04"}, now)
	require.NoError(t, err)
	assert.Equal(t, "18:00", out.CurrentTime)
	assert.Equal(t, "Asia/Colombo", out.Location)

	_, err = GetCurrentTime(context.Background(), GetCurrentTimeInput{Location: "Nowhere/Special"}, now)
	assert.ErrorContains(t, err, "invalid location")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestKnowledgeBase(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "Error: Knowledge base file not found", KnowledgeBase(ctx, filepath.Join(t.TempDir(), "missing.json")))
	assert.Equal(t, "Error: Invalid JSON in knowledge base file", KnowledgeBase(ctx, writeFile(t, "{nope")))

	text := KnowledgeBase(ctx, writeFile(t, `[
		{"question": "What is MCP?", "answer": "A tool protocol."},
		{"answer": "Orphan answer"},
		"plain entry"
	]`))
	assert.Equal(t, "Here is the retrieved knowledge base:\n\n"+
		"Q1: What is MCP?\nA1: A tool protocol.\n\n"+
		"Q2: Unknown question\nA2: Orphan answer\n\n"+
		"Q3: Item 3\nA3: plain entry\n\n", text)

	text = KnowledgeBase(ctx, writeFile(t, `{"topic": "go"}`))
	assert.True(t, strings.HasPrefix(text, "Here is the retrieved knowledge base:\n\nKnowledge base content: {"))
	assert.Contains(t, text, `"topic": "go"`)
}

const testPage = `<html>
<head><title> Release notes </title><style>body{}</style></head>
<body>
  <h1>Go 1.23</h1>
  <script>var x = 1;</script>
  <div class="summary">
    <p>Iterators arrive.</p>
    <p>Timers are collected.</p>
  </div>
  <a href="/docs">Docs</a>
  <a href="https://example.org/blog">Blog Blog</a>
  <a href="/docs">Docs again</a>
  <a href="mailto:team@example.org">Mail</a>
</body>
</html>`

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPage(t *testing.T) {
	srv := newPageServer(t)

	out, err := FetchPage(context.Background(), srv.Client(), FetchPageInput{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Release notes", out.Title)
	assert.Contains(t, out.Text, "Go 1.23\nIterators arrive.\nTimers are collected.")
	assert.NotContains(t, out.Text, "var x")
	assert.False(t, out.Truncated)

	out, err = FetchPage(context.Background(), srv.Client(), FetchPageInput{URL: srv.URL, Selector: ".summary p"})
	require.NoError(t, err)
	assert.Equal(t, "Iterators arrive.\nTimers are collected.", out.Text)

	_, err = FetchPage(context.Background(), srv.Client(), FetchPageInput{URL: srv.URL, Selector: "table"})
	assert.ErrorContains(t, err, "matched nothing")

	_, err = FetchPage(context.Background(), srv.Client(), FetchPageInput{URL: srv.URL + "/missing"})
	assert.ErrorContains(t, err, "Status: 404")
}

func TestFetchPageTruncatesOnRuneBoundary(t *testing.T) {
	// one ASCII byte then two-byte runes, so the byte limit lands inside a rune
	body := "a" + strings.Repeat("é", maxPageTextBytes)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>" + body + "</p></body></html>"))
	}))
	t.Cleanup(srv.Close)

	out, err := FetchPage(context.Background(), srv.Client(), FetchPageInput{URL: srv.URL})

	require.NoError(t, err)
	assert.True(t, out.Truncated)
	assert.True(t, utf8.ValidString(out.Text))
	assert.Equal(t, maxPageTextBytes-1, len(out.Text))
	assert.True(t, strings.HasPrefix(body, out.Text))
}

func TestCrawlLinks(t *testing.T) {
	srv := newPageServer(t)

	links, err := CrawlLinks(context.Background(), CrawlLinksInput{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{Text: "Docs", URL: srv.URL + "/docs"},
		{Text: "Blog", URL: "https://example.org/blog"},
	}, links)

	links, err = CrawlLinks(context.Background(), CrawlLinksInput{URL: srv.URL, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Breaking news", cleanTitle("  Breaking   news  "))
	assert.Equal(t, "Markets rally today", cleanTitle("Markets rally today Markets rally today"))
	assert.Equal(t, "", cleanTitle(""))
}
