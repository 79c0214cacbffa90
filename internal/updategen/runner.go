package updategen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/fedagg/internal/domain/model"
	"github.com/okian/fedagg/pkg/logger"
)

// Run generates an update set, optionally writes it to disk, and optionally
// submits it to a server and verifies the returned model.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.GetOr(logger.Nop()).Named("gen-updates")
	stats := &Stats{
		StartTime: time.Now(),
	}

	log.Info(ctx, "starting update generation",
		logger.Int("clients", cfg.Clients),
		logger.Int("dim", cfg.Dim),
		logger.Float64("spread", cfg.Spread),
		logger.Int("workers", cfg.Workers),
		logger.String("baseURL", cfg.BaseURL),
	)

	updates, err := Generate(ctx, cfg)
	if err != nil {
		return stats, fmt.Errorf("update generation failed: %w", err)
	}
	stats.ClientsGenerated = len(updates)

	if cfg.OutputFile != "" {
		if err := saveUpdatesToFile(cfg.OutputFile, updates); err != nil {
			return stats, fmt.Errorf("saving updates failed: %w", err)
		}
		log.Info(ctx, "updates saved to file", logger.String("filename", cfg.OutputFile))
	}

	if cfg.BaseURL != "" {
		client := newHTTPClient(cfg.Timeout)
		if err := checkServiceHealth(ctx, client, cfg); err != nil {
			return stats, fmt.Errorf("service health check failed: %w", err)
		}

		stats.RoundID = newRoundID()
		got, err := submitUpdates(ctx, client, cfg, stats.RoundID, updates)
		if err != nil {
			return stats, fmt.Errorf("submission failed: %w", err)
		}
		stats.Submitted = true
		stats.ModelHash = got.ModelHash

		if err := verifyResult(ctx, cfg, updates, got, stats); err != nil {
			return stats, fmt.Errorf("result verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// saveUpdatesToFile writes the update set as an indented JSON array.
func saveUpdatesToFile(filename string, updates []model.ClientUpdate) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(updates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal updates: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("clientsGenerated", stats.ClientsGenerated),
		logger.Bool("submitted", stats.Submitted),
		logger.String("roundId", stats.RoundID),
		logger.String("modelHash", stats.ModelHash),
		logger.Bool("digestVerified", stats.DigestVerified),
		logger.Bool("localMatched", stats.LocalMatched),
		logger.Duration("duration", stats.Duration),
	)
}
