package app

import (
	"context"
	"fmt"

	"sam-segmenter/internal/config"
	"sam-segmenter/internal/logger"
	"sam-segmenter/internal/predictor/discovery"
	"sam-segmenter/internal/predictor/remote"
)

// ConnectPredictor dials the inference server named by the configuration,
// browsing mDNS first when the URL is "auto".
func ConnectPredictor(ctx context.Context, cfg *config.Config, log logger.Logger) (*remote.Client, error) {
	url := cfg.ServerURL
	if url == config.ServerAuto {
		srv, err := discovery.Find(ctx, discovery.DefaultTimeout)
		if err != nil {
			return nil, fmt.Errorf("discover inference server: %w", err)
		}
		url = srv.URL()
		log.Info("Application", "inference server discovered", map[string]interface{}{
			"instance": srv.Instance,
			"url":      url,
		})
	}

	return remote.Dial(ctx, url, cfg.RequestTimeout, log)
}
