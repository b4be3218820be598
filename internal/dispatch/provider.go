package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/config"
	"go.uber.org/zap"
)

// ErrUnavailable marks a send that never reached the provider
var ErrUnavailable = errors.New("provider unavailable")

// SendResult is the provider's answer to one send
type SendResult struct {
	Success bool   `json:"success"`
	Raw     string `json:"raw"`
	Error   string `json:"error,omitempty"`
}

// Provider delivers a text message to a phone number. A returned error
// means the request could not be completed; a rejected message is
// reported through SendResult instead.
type Provider interface {
	Name() string
	Send(ctx context.Context, phone, text string) (*SendResult, error)
}

// NewProvider creates the provider selected by the configuration
func NewProvider(cfg *config.ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case cnst.ProviderSimulated, "":
		return NewSimulatedProvider(cfg.Simulated, logger), nil
	case cnst.ProviderEvolution:
		return NewEvolutionProvider(cfg.Evolution, logger)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
