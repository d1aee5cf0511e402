// SPDX-License-Identifier: MIT
package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skaphos/lantern/internal/strutil"
)

// requestTimeout bounds every forge API request.
const requestTimeout = 20 * time.Second

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 10 << 20

// ErrNetwork wraps transport-level failures so callers can distinguish an
// unreachable forge from an API rejection.
var ErrNetwork = errors.New("network failure")

func newClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// getJSON performs one GET against url and decodes the JSON response into
// out. Non-2xx responses become errors carrying the status and the first
// line of the body.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strutil.Truncate(strutil.FirstLine(string(body)), 200)
		if detail == "" {
			return fmt.Errorf("GET %s: %s", url, resp.Status)
		}
		return fmt.Errorf("GET %s: %s: %s", url, resp.Status, detail)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", url, err)
	}
	return nil
}
