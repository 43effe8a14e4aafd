package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DirectFetcher posts the form with net/http. It cannot pass a browser
// challenge and suits upstreams that do not use one.
type DirectFetcher struct {
	client   *http.Client
	endpoint string
}

// NewDirect creates a DirectFetcher posting to endpoint. A nil client uses
// a client without its own timeout; the request context bounds each call.
func NewDirect(client *http.Client, endpoint string) *DirectFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &DirectFetcher{client: client, endpoint: endpoint}
}

// Fetch implements Fetcher.
func (f *DirectFetcher) Fetch(ctx context.Context, target string) (*Result, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("url", target)
	form.Set("token", randomToken())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	return &Result{Status: resp.StatusCode, Data: DecodePayload(body)}, nil
}
