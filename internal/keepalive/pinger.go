// Package keepalive pings the service's own health endpoint so the host does
// not idle it out.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 5 * time.Minute

// Pinger periodically GETs a health URL. Failures are logged only.
type Pinger struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPinger creates a pinger for url.
func NewPinger(url string, interval time.Duration, httpClient *http.Client, logger *zap.Logger) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pinger{url: url, interval: interval, httpClient: httpClient, logger: logger}
}

// Run pings immediately and then on every tick until ctx is done.
func (p *Pinger) Run(ctx context.Context) {
	p.logger.Info("keep-alive started", zap.String("url", p.url), zap.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("keep-alive stopping")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Pinger) tick(ctx context.Context) {
	if err := p.Ping(ctx); err != nil {
		p.logger.Warn("keep-alive ping failed", zap.Error(err))
		return
	}
	p.logger.Debug("keep-alive ping successful")
}

// Ping performs a single health request.
func (p *Pinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}
	return nil
}
