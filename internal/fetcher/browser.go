package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/onnwee/indevice-proxy/internal/logger"
)

// BrowserOptions configures the headless Chrome session.
type BrowserOptions struct {
	// Origin is loaded first so the page holds the challenge cookies.
	Origin string
	// Endpoint receives the form POST from inside the page.
	Endpoint string
	// ChallengeWait is how long to idle on Origin before posting.
	ChallengeWait time.Duration

	ExecPath  string
	Headless  bool
	NoSandbox bool
}

// BrowserFetcher launches a fresh Chrome per request, clears the origin's
// JavaScript challenge and posts the form from within the page.
type BrowserFetcher struct {
	opts BrowserOptions
}

// NewBrowser creates a BrowserFetcher.
func NewBrowser(opts BrowserOptions) *BrowserFetcher {
	return &BrowserFetcher{opts: opts}
}

// pageResult is returned by the in-page script.
type pageResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Fetch implements Fetcher. Chrome is shut down on every return path.
func (f *BrowserFetcher) Fetch(ctx context.Context, target string) (*Result, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}

	script, err := buildFetchScript(target, f.opts.Endpoint, randomToken())
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions(RandomUserAgent())...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var res pageResult
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(f.opts.Origin),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.opts.ChallengeWait),
		chromedp.Evaluate(script, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch failed: %w", err)
	}

	logger.DebugContext(ctx, "browser fetch completed",
		"status", res.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{Status: res.Status, Data: DecodePayload([]byte(res.Body))}, nil
}

func (f *BrowserFetcher) allocatorOptions(userAgent string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("headless", f.opts.Headless),
	)
	if f.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ExecPath))
	}
	if f.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

const fetchScript = `(async () => {
	const form = new URLSearchParams();
	form.append("url", %s);
	form.append("token", %s);
	const resp = await fetch(%s, {
		method: "POST",
		headers: { "Content-Type": "application/x-www-form-urlencoded" },
		body: form,
	});
	return { status: resp.status, body: await resp.text() };
})()`

// buildFetchScript renders the in-page POST with every argument JSON-quoted.
func buildFetchScript(target, endpoint, token string) (string, error) {
	args := make([]any, 0, 3)
	for _, s := range []string{target, token, endpoint} {
		q, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("encode script argument: %w", err)
		}
		args = append(args, string(q))
	}
	return fmt.Sprintf(fetchScript, args...), nil
}
