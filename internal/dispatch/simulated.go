package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/config"
	"go.uber.org/zap"
)

// SimulatedProvider accepts every message without contacting anyone
type SimulatedProvider struct {
	latency time.Duration
	logger  *zap.Logger
	seq     atomic.Int64
}

// NewSimulatedProvider creates a provider for development and tests
func NewSimulatedProvider(cfg config.SimulatedProviderConfig, logger *zap.Logger) *SimulatedProvider {
	return &SimulatedProvider{
		latency: cfg.Latency,
		logger:  logger.Named("provider.simulated"),
	}
}

func (p *SimulatedProvider) Name() string { return cnst.ProviderSimulated }

func (p *SimulatedProvider) Send(ctx context.Context, phone, text string) (*SendResult, error) {
	if p.latency > 0 {
		t := time.NewTimer(p.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-t.C:
		}
	}

	id := p.seq.Add(1)
	p.logger.Debug("simulated send", zap.String("phone", phone), zap.Int("length", len(text)), zap.Int64("id", id))
	return &SendResult{
		Success: true,
		Raw:     fmt.Sprintf(`{"key":{"id":"SIM-%d","remoteJid":%q},"status":"PENDING"}`, id, phone),
	}, nil
}
