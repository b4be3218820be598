package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/config"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

// EvolutionProvider sends WhatsApp text messages through an Evolution API instance
type EvolutionProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewEvolutionProvider creates a provider for the configured instance
func NewEvolutionProvider(cfg config.EvolutionProviderConfig, logger *zap.Logger) (*EvolutionProvider, error) {
	if cfg.BaseURL == "" || cfg.Instance == "" {
		return nil, errors.New("evolution provider requires base_url and instance")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid evolution base_url: %w", err)
	}
	return &EvolutionProvider{
		endpoint: base.String() + "/message/sendText/" + url.PathEscape(cfg.Instance),
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("provider.evolution"),
	}, nil
}

func (p *EvolutionProvider) Name() string { return cnst.ProviderEvolution }

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func (p *EvolutionProvider) Send(ctx context.Context, phone, text string) (*SendResult, error) {
	payload, err := json.Marshal(sendTextRequest{Number: strings.TrimPrefix(phone, "+"), Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	result := &SendResult{Raw: string(body)}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
		p.logger.Debug("message accepted",
			zap.String("phone", phone),
			zap.String("id", gjson.GetBytes(body, "key.id").String()),
			zap.String("status", gjson.GetBytes(body, "status").String()))
		return result, nil
	}

	result.Error = errorMessage(body, resp.StatusCode)
	p.logger.Warn("message rejected",
		zap.String("phone", phone),
		zap.Int("status", resp.StatusCode),
		zap.String("error", result.Error))
	return result, nil
}

// errorMessage extracts a readable reason from an Evolution error body
func errorMessage(body []byte, status int) string {
	for _, path := range []string{"response.message", "message", "error"} {
		v := gjson.GetBytes(body, path)
		if !v.Exists() {
			continue
		}
		if v.IsArray() {
			var parts []string
			for _, item := range v.Array() {
				if s := strings.TrimSpace(item.String()); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
