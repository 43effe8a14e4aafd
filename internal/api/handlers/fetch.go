package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"github.com/onnwee/indevice-proxy/internal/apierr"
	"github.com/onnwee/indevice-proxy/internal/circuitbreaker"
	"github.com/onnwee/indevice-proxy/internal/errorreporting"
	"github.com/onnwee/indevice-proxy/internal/logger"
	"github.com/onnwee/indevice-proxy/internal/proxy"
	"github.com/onnwee/indevice-proxy/internal/utils"
)

// targetParams are the accepted query parameter names, in priority order.
var targetParams = []string{"TARGET_URL", "target_url", "url"}

// Resolver resolves a target to a cached or freshly fetched response.
type Resolver interface {
	Resolve(ctx context.Context, target string) (proxy.Outcome, error)
}

// FetchHandler serves GET /api/fetch.
type FetchHandler struct {
	resolver Resolver
}

// NewFetchHandler creates a new fetch handler.
func NewFetchHandler(r Resolver) *FetchHandler {
	return &FetchHandler{resolver: r}
}

// fetchResponse is the success envelope. APIStatus is omitted on cache hits.
type fetchResponse struct {
	Status       string          `json:"status"`
	Cached       bool            `json:"cached"`
	TTL          int             `json:"ttl"`
	RequestedURL string          `json:"requested_url"`
	APIStatus    *int            `json:"api_status,omitempty"`
	Response     json.RawMessage `json:"response"`
}

// ServeHTTP implements http.Handler.
func (h *FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	target := targetFromQuery(r)
	if strings.TrimSpace(target) == "" {
		apierr.WriteErrorWithContext(w, r, apierr.MissingTarget())
		return
	}

	out, err := h.resolver.Resolve(r.Context(), target)
	if err != nil {
		h.writeFetchError(w, r, target, err)
		return
	}

	resp := fetchResponse{
		Status:       "success",
		Cached:       out.Cached,
		TTL:          out.TTL,
		RequestedURL: target,
		Response:     out.Response,
	}
	cacheHeader := "HIT"
	if !out.Cached {
		status := out.APIStatus
		resp.APIStatus = &status
		cacheHeader = "MISS"
	}

	logger.InfoContext(r.Context(), "fetch served",
		"target", target,
		"cached", out.Cached,
		"shared", out.Shared,
		"ttl", out.TTL,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheHeader)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *FetchHandler) writeFetchError(w http.ResponseWriter, r *http.Request, target string, err error) {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		logger.WarnContext(r.Context(), "fetch rejected, upstream circuit open", "target", target)
		errorreporting.AddBreadcrumb("fetcher", "circuit open", sentry.LevelWarning)
		apierr.WriteErrorWithContext(w, r, apierr.FetchUnavailable(err.Error()))
	case errors.Is(err, proxy.ErrFetchPanicked):
		// Already logged and reported by the service.
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Internal Server Error"))
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nobody reads the response.
		logger.DebugContext(r.Context(), "client disconnected during fetch", "target", target)
		apierr.WriteErrorWithContext(w, r, apierr.FetchFailed(err.Error()))
	default:
		logger.ErrorContext(r.Context(), "fetch failed", "target", target, "error", err)
		errorreporting.CaptureRequestError(r, err, map[string]string{"component": "fetcher"})
		apierr.WriteErrorWithContext(w, r, apierr.FetchFailed(err.Error()))
	}
}

// targetFromQuery returns the first non-empty alias value, untrimmed.
func targetFromQuery(r *http.Request) string {
	q := r.URL.Query()
	values := make([]string, len(targetParams))
	for i, name := range targetParams {
		values[i] = q.Get(name)
	}
	return utils.FirstNonEmpty(values...)
}
