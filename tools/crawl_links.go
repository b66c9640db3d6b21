package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultLinkLimit = 25

type CrawlLinksInput struct {
	URL   string `json:"url" jsonschema_description:"Absolute http(s) URL to collect links from"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of links to return, default 25"`
}

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// CrawlLinks visits a single page and returns its distinct absolute links in
// document order.
func CrawlLinks(ctx context.Context, input CrawlLinksInput) ([]Link, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLinkLimit
	}

	c := colly.NewCollector(colly.MaxDepth(1))
	if deadline, ok := ctx.Deadline(); ok {
		c.SetRequestTimeout(time.Until(deadline))
	}

	var links []Link
	seen := make(map[string]bool)
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if len(links) >= limit {
			return
		}
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if href == "" || seen[href] || !strings.HasPrefix(href, "http") {
			return
		}
		seen[href] = true
		links = append(links, Link{Text: cleanTitle(e.Text), URL: href})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("request %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(input.URL); err != nil {
		return nil, err
	}
	c.Wait()
	if visitErr != nil {
		return nil, visitErr
	}
	return links, nil
}

// cleanTitle collapses whitespace and removes a duplicated trailing word run,
// which shows up when a link wraps both an image caption and a heading.
func cleanTitle(title string) string {
	words := strings.Fields(title)
	for i := 1; i <= len(words)/2; i++ {
		if strings.Join(words[len(words)-i:], " ") == strings.Join(words[len(words)-2*i:len(words)-i], " ") {
			return strings.Join(words[:len(words)-i], " ")
		}
	}
	return strings.Join(words, " ")
}
