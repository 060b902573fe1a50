// Package gridclient keeps an editable grid of events in sync with the
// events API: it owns the draft of the row being added or edited, turns the
// grid's edit protocol into single API calls, and re-fetches the
// authoritative list after every mutation.
package gridclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"eventsapi/models"
)

// APIClient talks to the events API with a bearer credential.
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// OnUnauthorized fires when any call comes back 401 so the host can drop
	// the cached credential and re-prompt for login.
	OnUnauthorized func()
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

// APIError carries the server's message verbatim so the UI can surface it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (c *APIClient) ListEvents(ctx context.Context) ([]models.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/events", nil)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	if err := c.do(req, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *APIClient) CreateEvent(ctx context.Context, d *Draft) (models.Event, error) {
	body, contentType, err := encodeDraft(d)
	if err != nil {
		return models.Event{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/events", body)
	if err != nil {
		return models.Event{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var event models.Event
	if err := c.do(req, &event); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (c *APIClient) UpdateEvent(ctx context.Context, id string, d *Draft) (models.Event, error) {
	body, contentType, err := encodeDraft(d)
	if err != nil {
		return models.Event{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/events/"+id, body)
	if err != nil {
		return models.Event{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var event models.Event
	if err := c.do(req, &event); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (c *APIClient) DeleteEvent(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/events/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ResolveImage turns a stored relative reference into an absolute URL.
func (c *APIClient) ResolveImage(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return c.BaseURL + ref
}

func (c *APIClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: serverMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func serverMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}

// encodeDraft serializes the draft as the multipart payload the API expects:
// every field as a text part, the chosen image as a binary part, or an empty
// "image" text part when the user cleared an existing image.
func encodeDraft(d *Draft) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := map[string]string{
		"name":        d.Name,
		"description": d.Description,
		"date":        d.Date,
		"time":        d.Time,
		"location":    d.Location,
		"status":      d.Status,
		"cost":        d.Cost,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	switch {
	case len(d.ImageData) > 0:
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="image"`)
		contentType := d.ImageType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(d.ImageData); err != nil {
			return nil, "", err
		}
	case d.ImageClear:
		if err := w.WriteField("image", ""); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
