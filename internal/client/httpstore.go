package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

const maxResponseBytes = 4 << 20

// HTTPStore talks to a remote suggestion server over its REST API.
type HTTPStore struct {
	baseURL string
	http    *http.Client
}

type HTTPOption func(*HTTPStore)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		s.http = c
	}
}

func NewHTTPStore(baseURL string, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPStore) Fetch(ctx context.Context, key, query string) ([]models.Suggestion, error) {
	if strings.TrimSpace(key) == "" {
		return nil, models.ErrEmptyKey
	}
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	body, err := s.do(ctx, http.MethodGet, suggestionsPath(key), params, nil)
	if err != nil {
		return nil, err
	}

	items := gjson.GetBytes(body, "suggestions").Array()
	out := make([]models.Suggestion, 0, len(items))
	for _, item := range items {
		sug := models.Suggestion{
			Value:      item.Get("value").String(),
			UsageCount: int(item.Get("usage_count").Int()),
			SourceKey:  key,
		}
		if ts := item.Get("last_used_at"); ts.Exists() {
			if at, err := time.Parse(time.RFC3339Nano, ts.String()); err == nil {
				sug.LastUsedAt = at
			}
		}
		if sug.Value != "" {
			out = append(out, sug)
		}
	}
	return out, nil
}

func (s *HTTPStore) Save(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return models.ErrEmptyKey
	}
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPost, suggestionsPath(key), nil, payload)
	return err
}

func (s *HTTPStore) Delete(ctx context.Context, key, value string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, models.ErrEmptyKey
	}
	body, err := s.do(ctx, http.MethodDelete, suggestionsPath(key), url.Values{"value": {value}}, nil)
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(body, "deleted").Bool(), nil
}

func (s *HTTPStore) Len(ctx context.Context, key string) (int, error) {
	if strings.TrimSpace(key) == "" {
		return 0, models.ErrEmptyKey
	}
	body, err := s.do(ctx, http.MethodGet, suggestionsPath(key)+"/count", nil, nil)
	if err != nil {
		return 0, err
	}
	return int(gjson.GetBytes(body, "count").Int()), nil
}

func (s *HTTPStore) Keys(ctx context.Context) ([]string, error) {
	body, err := s.do(ctx, http.MethodGet, "/api/keys", nil, nil)
	if err != nil {
		return nil, err
	}
	items := gjson.GetBytes(body, "keys").Array()
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.String())
	}
	return keys, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	target := s.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", models.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrStoreUnavailable, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(method, path, resp.StatusCode, body)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s %s: invalid JSON response", models.ErrStoreUnavailable, method, path)
	}
	return body, nil
}

func statusError(method, path string, code int, body []byte) error {
	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = http.StatusText(code)
	}
	cause := models.ErrStoreUnavailable
	for _, known := range []error{models.ErrEmptyKey, models.ErrEmptyValue} {
		if code == http.StatusBadRequest && msg == known.Error() {
			cause = known
		}
	}
	return fmt.Errorf("%w: %s %s: status %d: %s", cause, method, path, code, msg)
}

func suggestionsPath(key string) string {
	return "/api/suggestions/" + url.PathEscape(strings.TrimSpace(key))
}
