// Package httpsrc fetches assets relative to a base URL, the way a browser
// front-end fetches files served next to its page.
package httpsrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carbonatlas/internal/assets/core"
)

// Store implements core.Source over HTTP GET/HEAD.
type Store struct {
	base   *url.URL
	client *http.Client
}

// New returns a source resolving keys against baseURL. A nil client uses
// http.DefaultClient; there is no timeout unless the client or context sets one.
func New(baseURL string, client *http.Client) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{base: u, client: client}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverHTTP }

func (s *Store) resolve(key string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(key, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid key %q: %w", key, err)
	}
	return s.base.ResolveReference(ref).String(), nil
}

func (s *Store) do(ctx context.Context, method, key string) (*http.Response, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("asset %s: %w", key, core.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}
	return resp, nil
}

func infoFromResponse(key string, resp *http.Response) core.Info {
	info := core.Info{
		Key:         key,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), "\""),
	}
	if info.Size < 0 {
		info.Size = 0
		if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
			info.Size = n
		}
	}
	if info.ContentType == "" {
		info.ContentType = core.ContentTypeFor(key)
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.LastModified = lm.UTC()
	} else {
		info.LastModified = time.Now().UTC()
	}
	return info
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	return infoFromResponse(key, resp), resp.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	resp, err := s.do(ctx, http.MethodHead, key)
	if err != nil {
		return core.Info{}, err
	}
	_ = resp.Body.Close()
	return infoFromResponse(key, resp), nil
}

// List is not available over plain HTTP.
func (s *Store) List(context.Context, string) ([]core.Info, error) {
	return nil, core.ErrUnsupported
}
