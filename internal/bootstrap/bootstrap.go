// Package bootstrap builds the shared components both binaries start from.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/everweb-bridge/backend/config"
	"github.com/everweb-bridge/backend/internal/everwebinar"
	"github.com/everweb-bridge/backend/internal/retry"
	"github.com/everweb-bridge/backend/internal/sheets"
	"github.com/everweb-bridge/backend/internal/submissions"
)

// NewLogger returns a production zap logger at the given level (default info).
func NewLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil && level != "" {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// LogRequired logs the presence of each required variable and returns the
// missing ones. Values are never logged.
func LogRequired(cfg *config.Config, logger *zap.Logger) []string {
	for _, v := range cfg.Required() {
		if v.Value == "" {
			logger.Error("missing required environment variable", zap.String("name", v.Name))
			continue
		}
		logger.Info("found environment variable", zap.String("name", v.Name))
	}
	return cfg.MissingRequired()
}

// RetryPolicy builds the linear retry policy from config.
func RetryPolicy(cfg *config.Config, logger *zap.Logger) retry.Policy {
	p := retry.Default("", logger)
	if cfg.Retry.MaxAttempts > 0 {
		p.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.Step > 0 {
		p.Backoff = retry.Linear(cfg.Retry.Step)
	}
	return p
}

// SheetIDs returns the purchase and audit spreadsheet ids.
func SheetIDs(cfg *config.Config) submissions.SheetIDs {
	return submissions.SheetIDs{Purchases: cfg.Sheets.PurchaseSheetID, Audit: cfg.Sheets.AuditSheetID}
}

// NewProvider creates the EverWebinar client.
func NewProvider(cfg *config.Config, logger *zap.Logger) *everwebinar.Client {
	httpClient := everwebinar.DefaultHTTPClient(time.Duration(cfg.EverWebinar.TimeoutSeconds) * time.Second)
	return everwebinar.NewClient(cfg.EverWebinar.BaseURL, cfg.EverWebinar.APIKey, cfg.EverWebinar.WebinarID, httpClient, logger)
}

// NewWorkbook creates the Sheets-backed workbook. A bad credential does not
// stop the process: the returned workbook fails every Open with the cause.
func NewWorkbook(ctx context.Context, cfg *config.Config, logger *zap.Logger) sheets.Workbook {
	wb, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		logger.Error("google sheets unavailable", zap.Error(err))
		return unavailableWorkbook{err: err}
	}
	return wb
}

func newSheetsService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sheets.Service, error) {
	if cfg.Sheets.PrivateKey == "" || cfg.Sheets.ServiceAccountEmail == "" {
		return nil, fmt.Errorf("service account credential not configured")
	}
	key := config.FormatPrivateKey(cfg.Sheets.PrivateKey)
	logger.Debug("private key normalized", zap.Int("length", len(key)))

	ts, err := sheets.ServiceAccountTokenSource(ctx, cfg.Sheets.ServiceAccountEmail, key, cfg.Sheets.TokenURL, []string{sheets.ScopeSpreadsheets}, nil)
	if err != nil {
		return nil, err
	}
	return sheets.NewService(ctx, ts, sheets.Options{Endpoint: cfg.Sheets.Endpoint}, logger)
}

type unavailableWorkbook struct {
	err error
}

func (u unavailableWorkbook) Open(context.Context, string) (sheets.Worksheet, error) {
	return nil, fmt.Errorf("google sheets: %w", u.err)
}
