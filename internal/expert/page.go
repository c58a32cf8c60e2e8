package expert

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

// Page bodies are bounded; a stylesheet form should never be this big.
const maxPageBytes = 4 * 1024 * 1024

// EditPage is one scraped edit form: the fresh anti-forgery token plus the
// server's current value for every requested field.
type EditPage struct {
	Token  string
	Fields map[string]string
}

// FetchEditPage GETs the edit form at path and scrapes the token and the
// named textarea fields. A missing token yields ErrNoToken (expired session
// or wrong page); a missing textarea is treated as an empty field.
func (c *Client) FetchEditPage(ctx context.Context, path string, fields []string) (*EditPage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	pageURL := c.pageURL(path)
	req, err := c.newRequest(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch edit page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, StatusError{Code: resp.StatusCode, URL: pageURL}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse edit page: %w", err)
	}

	token, ok := doc.Find(`input[name="csrf_token"]`).Attr("value")
	if !ok || token == "" {
		return nil, ErrNoToken
	}

	page := &EditPage{Token: token, Fields: make(map[string]string, len(fields))}
	for _, name := range fields {
		sel := doc.Find(fmt.Sprintf("textarea[name=%q]", name))
		if sel.Length() == 0 {
			c.log.Warn("edit page is missing a field, treating as empty", "field", name)
			page.Fields[name] = ""
			continue
		}
		page.Fields[name] = sel.First().Text()
	}
	return page, nil
}
