package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const maxPageTextBytes = 20000

type FetchPageInput struct {
	URL      string `json:"url" jsonschema_description:"Absolute http(s) URL of the page to read"`
	Selector string `json:"selector,omitempty" jsonschema_description:"Optional CSS selector; only matching elements are returned"`
}

type FetchPageOutput struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated,omitempty"`
}

// FetchPage downloads a page and returns its readable text, paragraph by
// paragraph, optionally narrowed to a CSS selector.
func FetchPage(ctx context.Context, client *http.Client, input FetchPageInput) (FetchPageOutput, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return FetchPageOutput{}, fmt.Errorf("invalid url: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return FetchPageOutput{}, fmt.Errorf("error fetching the page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchPageOutput{}, fmt.Errorf("failed to load page. Status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return FetchPageOutput{}, fmt.Errorf("error parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	selection := doc.Find("body")
	if input.Selector != "" {
		selection = doc.Find(input.Selector)
		if selection.Length() == 0 {
			return FetchPageOutput{}, fmt.Errorf("selector %q matched nothing", input.Selector)
		}
	}

	var text strings.Builder
	selection.Each(func(_ int, s *goquery.Selection) {
		for _, line := range strings.Split(s.Text(), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(line)
		}
	})

	out := FetchPageOutput{
		URL:   input.URL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  text.String(),
	}
	if len(out.Text) > maxPageTextBytes {
		cut := maxPageTextBytes
		for cut > 0 && !utf8.RuneStart(out.Text[cut]) {
			cut--
		}
		out.Text = out.Text[:cut]
		out.Truncated = true
	}
	return out, nil
}
