package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/services/interstitial"
)

// Document returns the viewer payload of a document
func (c *Client) Document(ctx context.Context, slugOrID string, fromQR bool) (*services.DocumentView, error) {
	path := "/api/v1/documents/" + url.PathEscape(slugOrID)
	if fromQR {
		path += "?src=qr"
	}

	var out services.DocumentView
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderLink returns the messaging link used to order a printed copy
func (c *Client) OrderLink(ctx context.Context, slugOrID string) (string, error) {
	var out struct {
		Link string `json:"link"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(slugOrID)+"/order-link", nil, &out); err != nil {
		return "", err
	}
	return out.Link, nil
}

func (c *Client) InterstitialConfig(ctx context.Context) (*interstitial.Schedule, error) {
	var out interstitial.Schedule
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/interstitials/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateIntent starts the countdown in front of a view or a download
func (c *Client) CreateIntent(ctx context.Context, slugOrID string, action interstitial.Action) (*interstitial.State, error) {
	var out interstitial.State
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+url.PathEscape(slugOrID)+"/intents", map[string]string{
		"action": string(action),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) IntentState(ctx context.Context, ticket string) (*interstitial.State, error) {
	var out interstitial.State
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/interstitials/"+url.PathEscape(ticket), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dismiss consumes a ticket and returns the raw result of the deferred
// action. A running countdown is an *APIError with status 409 and code
// NOT_READY.
func (c *Client) Dismiss(ctx context.Context, ticket string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/interstitials/"+url.PathEscape(ticket)+"/dismiss", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download streams the file of a document into w and returns the
// attachment filename the server chose
func (c *Client) Download(ctx context.Context, downloadPath string, w io.Writer) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, downloadPath, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decode(resp, nil)
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return filename, nil
}
