package fetcher

import (
	"github.com/onnwee/indevice-proxy/internal/config"
)

// New builds the fetcher selected by cfg.FetcherMode, wrapped in Guarded.
func New(cfg *config.Config) *Guarded {
	var base Fetcher
	switch cfg.FetcherMode {
	case config.FetcherModeDirect:
		base = NewDirect(nil, cfg.UpstreamURL())
	default:
		base = NewBrowser(BrowserOptions{
			Origin:        cfg.FetchOrigin,
			Endpoint:      cfg.UpstreamURL(),
			ChallengeWait: cfg.FetchChallengeWait,
			ExecPath:      cfg.ChromePath,
			Headless:      cfg.ChromeHeadless,
			NoSandbox:     cfg.ChromeNoSandbox,
		})
	}

	return NewGuarded(base, GuardOptions{
		Mode:             cfg.FetcherMode,
		Timeout:          cfg.FetchTimeout,
		BreakerThreshold: cfg.FetchBreakerThreshold,
		BreakerCooldown:  cfg.FetchBreakerCooldown,
	})
}
