// Package client implements the HTTP client used by the kpsk command.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/capsulehq/keepsake/internal/blob"
	"github.com/capsulehq/keepsake/internal/kserror"
	"github.com/capsulehq/keepsake/internal/server"
	"github.com/capsulehq/keepsake/internal/server/service"
	"github.com/pkg/errors"
)

type (
	// A Memory is the public render returned by the server.
	Memory struct {
		Code          string    `json:"code"`
		Title         string    `json:"title"`
		ShortMessage  string    `json:"short_message"`
		Story         string    `json:"story"`
		GalleryImages []string  `json:"gallery_images"`
		AvatarImage   string    `json:"avatar_image"`
		CoverImage    string    `json:"cover_image"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	// A Created holds the creation response. The secret key appears here and
	// nowhere else; it belongs in the device's ledger.
	Created struct {
		Code      string `json:"code"`
		SecretKey string `json:"secret_key"`
	}

	// A Client can interacts with a keepsake server.
	Client struct {
		endpoint string
		http     *http.Client
	}
)

// New returns a client for the given endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Create makes a new memory and returns its code and secret key.
func (c *Client) Create(params service.CreateParams) (*Created, error) {
	var created Created
	err := c.do(http.MethodPost, "/memories", "", params, &created)
	return &created, err
}

// Get returns the public memory at the given code.
func (c *Client) Get(code string) (*Memory, error) {
	var memory Memory
	err := c.do(http.MethodGet, "/memories/"+code, "", nil, &memory)
	return &memory, err
}

// Summaries returns summaries for the given codes, unresolvable ones omitted.
func (c *Client) Summaries(codes []string) ([]service.Summary, error) {
	var body struct {
		Summaries []service.Summary `json:"summaries"`
	}
	err := c.do(http.MethodPost, "/memories/summaries", "", map[string][]string{"codes": codes}, &body)
	return body.Summaries, err
}

// Update merges the given fields over the memory owned by the secret.
func (c *Client) Update(code, secret string, params service.UpdateParams) (*Memory, error) {
	var memory Memory
	err := c.do(http.MethodPatch, "/memories/"+code, secret, params, &memory)
	return &memory, err
}

// Delete destroys the memory owned by the secret.
func (c *Client) Delete(code, secret string) error {
	return c.do(http.MethodDelete, "/memories/"+code, secret, nil, nil)
}

// Grant requests a direct-upload grant.
func (c *Client) Grant(filename, contentType string) (*blob.Grant, error) {
	var grant blob.Grant
	err := c.do(http.MethodPost, "/uploads", "", map[string]string{
		"filename":     filename,
		"content_type": contentType,
	}, &grant)
	return &grant, err
}

func (c *Client) do(method, path, secret string, payload, render interface{}) error {
	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return errors.Wrap(err, "could not serialize payload")
		}
	}

	req, err := http.NewRequest(method, c.endpoint+path, body)
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(server.SecretHeader, secret)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not reach keepsake endpoint")
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeError(res)
	}
	if render == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(render), "could not parse response")
}

func decodeError(res *http.Response) error {
	var body struct {
		FieldError struct {
			Tag     string `json:"tag"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.FieldError.Message == "" {
		return errors.Errorf("server answered %s", res.Status)
	}
	if body.FieldError.Tag == "" {
		return fmt.Errorf("%s", body.FieldError.Message)
	}
	return kserror.NewWithTagCode(res.StatusCode, body.FieldError.Tag, body.FieldError.Message)
}
