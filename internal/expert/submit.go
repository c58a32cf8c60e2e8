package expert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// FormField is one field of a save submission, in form order.
type FormField struct {
	Name  string
	Value string
}

// SubmitRequest is one legacy-compatible save POST. The endpoint persists the
// entire field set on every POST, so Fields must carry every form field, not
// just the edited one.
type SubmitRequest struct {
	Path   string
	Token  string
	Fields []FormField

	// SubmitName/SubmitValue reproduce the form's save button, which the
	// endpoint requires as a posted field.
	SubmitName  string
	SubmitValue string
}

type requestBody struct {
	reader      io.Reader
	contentType string
}

// Submit posts one save. Success is a 2xx or a redirect; anything else is a
// StatusError. An empty token refuses to submit with ErrNoToken before any
// bytes go out.
func (c *Client) Submit(ctx context.Context, sub SubmitRequest) error {
	if sub.Token == "" {
		return ErrNoToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	body, err := encodeForm(sub)
	if err != nil {
		return err
	}

	postURL := c.pageURL(sub.Path)
	req, err := c.newRequest(ctx, http.MethodPost, postURL, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))

	// Redirect-after-post is the legacy success path.
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return StatusError{Code: resp.StatusCode, URL: postURL}
}

func encodeForm(sub SubmitRequest) (*requestBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("csrf_token", sub.Token); err != nil {
		return nil, err
	}
	for _, f := range sub.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	if sub.SubmitName != "" {
		if err := w.WriteField(sub.SubmitName, sub.SubmitValue); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &requestBody{reader: &buf, contentType: w.FormDataContentType()}, nil
}
