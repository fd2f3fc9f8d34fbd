package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
)

// FromURL fetches an HTML page of course notes and extracts its readable
// text into a text/plain TransferFile named after the page title. Script
// and style content is dropped.
func FromURL(ctx context.Context, client *http.Client, url string) (*domain.TransferFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: request %q: %v", ErrIngest, url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %q: %v", ErrIngest, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %q: status %d", ErrIngest, url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		// Not a page: ingest the raw resource instead.
		return Read(io.LimitReader(resp.Body, config.MaxIngestBodySize), url, contentType)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, config.MaxIngestBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrIngest, url, err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = url
	}

	text := extractText(doc)
	if text == "" {
		return nil, fmt.Errorf("%w: %q has no readable text", ErrIngest, url)
	}

	return &domain.TransferFile{
		Name:     title,
		MimeType: "text/plain",
		Data:     []byte(text),
	}, nil
}

func extractText(doc *goquery.Document) string {
	var sb strings.Builder
	doc.Find("h1, h2, h3, h4, p, li, pre, td, th").Each(func(_ int, sel *goquery.Selection) {
		line := strings.Join(strings.Fields(sel.Text()), " ")
		if line == "" {
			return
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	})
	out := strings.TrimSpace(sb.String())
	if out == "" {
		// Fall back to whole-body text for pages without semantic markup.
		out = strings.TrimSpace(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	}
	return out
}
