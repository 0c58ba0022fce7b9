package logging

import (
	"log/slog"
	"os"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"

	"school_payments/internal/config"
)

// GetLogger returns a JSON logger on stdout, or one that ships to Loki when
// a URL is configured.
func GetLogger(cfg config.Logs) *slog.Logger {
	if cfg.LokiURL == "" {
		return localLogger()
	}
	return remoteLogger(cfg.LokiURL)
}

func localLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func remoteLogger(url string) *slog.Logger {
	lokiConfig, err := loki.NewDefaultConfig(url)
	if err != nil {
		return localLogger()
	}
	client, err := loki.New(lokiConfig)
	if err != nil {
		return localLogger()
	}

	return slog.New(slogloki.Option{
		Level:  slog.LevelInfo,
		Client: client,
	}.NewLokiHandler()).With("service", "school-payments")
}
