package vision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxFetchBytes bounds images downloaded for backends that only accept
// inline data. Larger images are rejected, not truncated.
const MaxFetchBytes = 5 << 20

// fetchImage downloads imageURL and returns its bytes and MIME type.
// Non-200 responses and non-image content types are errors.
func fetchImage(ctx context.Context, client *http.Client, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	resp, err := client.Do(req) //nolint:gosec // URL comes from our own image storage
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" → "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("fetch image: content type %q is not an image", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: read: %w", err)
	}
	if len(data) > MaxFetchBytes {
		return nil, "", fmt.Errorf("fetch image: larger than %d bytes", MaxFetchBytes)
	}
	return data, ct, nil
}
