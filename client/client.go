package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
)

type Client struct {
	http.Client
	Addr  string
	Token string
}

type Post struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int64  `json:"userId"`
}

type Toast struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// SubmitResult is the outcome of a create or edit submission. On
// validation failure Errors is set and Post is nil.
type SubmitResult struct {
	Post     *Post             `json:"post"`
	Toasts   []Toast           `json:"toasts"`
	Redirect string            `json:"redirect"`
	Status   string            `json:"status"`
	Errors   map[string]string `json:"errors"`
}

// StatusError is returned for responses the client cannot interpret.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (c *Client) Ping() (string, error) {
	req, err := http.NewRequest("GET", c.Addr+"/ping", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), err
}

func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	return c.list(ctx, "/posts")
}

func (c *Client) PersonalPosts(ctx context.Context) ([]Post, error) {
	return c.list(ctx, "/posts/personal")
}

func (c *Client) CreatePost(ctx context.Context, title, body string) (*SubmitResult, error) {
	return c.submit(ctx, http.MethodPost, "/posts", title, body)
}

func (c *Client) EditPost(ctx context.Context, id, title, body string) (*SubmitResult, error) {
	return c.submit(ctx, http.MethodPut, "/posts/"+id, title, body)
}

func (c *Client) list(ctx context.Context, path string) ([]Post, error) {
	resp, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, errors.Wrap(err, "decode posts")
	}

	return posts, nil
}

func (c *Client) submit(ctx context.Context, method, path, title, body string) (*SubmitResult, error) {
	payload, err := json.Marshal(map[string]string{"title": title, "body": body})
	if err != nil {
		return nil, err
	}

	resp, err := c.request(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusUnprocessableEntity, http.StatusInternalServerError:
	default:
		return nil, statusError(resp)
	}

	res := &SubmitResult{}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, errors.Wrap(err, "decode submit result")
	}

	return res, nil
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.Addr+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	return c.Do(req)
}

func statusError(resp *http.Response) error {
	b, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1<<10))

	return &StatusError{Code: resp.StatusCode, Body: string(b)}
}
