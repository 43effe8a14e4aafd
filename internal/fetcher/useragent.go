package fetcher

import (
	"fmt"

	"github.com/onnwee/indevice-proxy/internal/utils"
)

var androidVersions = []string{"9", "10", "11", "12", "13"}

// RandomUserAgent returns a plausible Android Chrome user agent.
func RandomUserAgent() string {
	return fmt.Sprintf(
		"Mozilla/5.0 (Linux; Android %s; %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.%d Mobile Safari/537.36",
		utils.PickRandomString(androidVersions),
		utils.RandomUpperLetter(),
		utils.RandomInRange(100, 130),
		utils.RandomInRange(0, 9999),
	)
}
