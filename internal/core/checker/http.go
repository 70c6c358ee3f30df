package checker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/brandlens/brandlens/internal/core"
)

const (
	maxBodyBytes     = 4 << 20
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

func retryAfterHeader(resp *http.Response) (time.Duration, map[string]any) {
	if resp == nil || resp.Header == nil {
		return 0, nil
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0, nil
	}

	if seconds, err := strconv.Atoi(retry); err == nil {
		return time.Duration(seconds) * time.Second, map[string]any{"retry_after": retry}
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed), map[string]any{"retry_after": retry}
	}

	return 0, map[string]any{"retry_after": retry}
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func decodeJSON(provider string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &core.ProviderError{Provider: provider, Kind: core.ProviderMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError classifies a non-success response.
func statusError(provider string, resp *http.Response, body []byte) *core.ProviderError {
	kind := core.ProviderHTTPStatus
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = core.ProviderUnauthorized
	case http.StatusForbidden:
		kind = core.ProviderForbidden
	case http.StatusTooManyRequests:
		kind = core.ProviderRateLimited
	}
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return &core.ProviderError{Provider: provider, Kind: kind, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode) + ": " + snippet)}
}
