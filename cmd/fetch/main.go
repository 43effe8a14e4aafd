// Command fetch performs a single upstream lookup and prints the JSON result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/indevice-proxy/internal/config"
	"github.com/onnwee/indevice-proxy/internal/fetcher"
	"github.com/onnwee/indevice-proxy/internal/logger"
)

func main() {
	_ = godotenv.Load()

	target := flag.String("url", "", "video URL to look up")
	mode := flag.String("mode", "", "fetcher mode override: browser or direct")
	timeout := flag.Duration("timeout", 90*time.Second, "overall timeout")
	quiet := flag.Bool("quiet", false, "suppress logs; only the result or error is printed")
	flag.Parse()

	if *target == "" && flag.NArg() > 0 {
		*target = flag.Arg(0)
	}
	if *target == "" {
		fmt.Fprintln(os.Stderr, "usage: fetch [-mode browser|direct] -url <video_url>")
		os.Exit(2)
	}

	cfg := config.Load()
	// stdout carries the JSON result only.
	if *quiet {
		logger.Discard()
	} else {
		logger.InitWithWriter(os.Stderr, cfg.LogLevel, false)
	}
	switch *mode {
	case "":
	case config.FetcherModeBrowser, config.FetcherModeDirect:
		cfg.FetcherMode = *mode
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	res, err := fetcher.New(cfg).Fetch(ctx, *target)
	if err != nil {
		logger.Error("fetch failed", "target", *target, "error", err)
		if *quiet {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		APIStatus int             `json:"api_status"`
		Response  json.RawMessage `json:"response"`
	}{res.Status, res.Data})
}
