package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mediafetch/internal/api"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: strings.TrimSpace(token),
		http:  &http.Client{},
	}
}

// apiError is a non-2xx reply from the daemon.
type apiError struct {
	Status  int
	Message string
	Kind    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (c *apiClient) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *apiClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("connect to daemon at %s: connection refused; start it with `mediafetch serve`", c.base)
		}
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var payload api.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil || payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &apiError{Status: resp.StatusCode, Message: payload.Error, Kind: payload.Kind}
	}
	return resp, nil
}

func (c *apiClient) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{id}}
}

func (c *apiClient) Submit(ctx context.Context, req api.SubmitRequest) (string, error) {
	var resp api.SubmitResponse
	if err := c.call(ctx, http.MethodPost, "/api/download-progress", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.DownloadID, nil
}

func (c *apiClient) Job(ctx context.Context, id string) (api.Job, error) {
	var job api.Job
	err := c.call(ctx, http.MethodGet, "/api/download-progress", idQuery(id), nil, &job)
	return job, err
}

func (c *apiClient) Cancel(ctx context.Context, id string) (api.Job, error) {
	var job api.Job
	err := c.call(ctx, http.MethodDelete, "/api/download-progress", idQuery(id), nil, &job)
	return job, err
}

func (c *apiClient) VideoInfo(ctx context.Context, target string) (api.InfoResponse, error) {
	var info api.InfoResponse
	err := c.call(ctx, http.MethodPost, "/api/video-info", nil, api.InfoRequest{URL: target}, &info)
	return info, err
}

func (c *apiClient) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.call(ctx, http.MethodGet, "/api/status", nil, nil, &status)
	return status, err
}

// Download streams the artifact for id into dir using the server-provided
// filename and returns the written path.
func (c *apiClient) Download(ctx context.Context, id, dir string) (string, int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/download-file", idQuery(id), nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := c.send(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = "download_" + id
	}
	target := filepath.Join(dir, name)
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", target, err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(target)
		return "", 0, fmt.Errorf("write %s: %w", target, copyErr)
	}
	if closeErr != nil {
		return "", 0, fmt.Errorf("close %s: %w", target, closeErr)
	}
	return target, written, nil
}

// attachmentName extracts a safe base filename from a Content-Disposition
// header, preferring the UTF-8 form.
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(strings.TrimSpace(params["filename"]))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}

const pollInterval = time.Second
