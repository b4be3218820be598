package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.ProviderConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, cnst.ProviderSimulated, p.Name())

	_, err = NewProvider(&config.ProviderConfig{Type: cnst.ProviderEvolution}, zap.NewNop())
	assert.Error(t, err)

	p, err = NewProvider(&config.ProviderConfig{
		Type:      cnst.ProviderEvolution,
		Evolution: config.EvolutionProviderConfig{BaseURL: "http://localhost:8080/", Instance: "main"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, cnst.ProviderEvolution, p.Name())
	assert.Equal(t, "http://localhost:8080/message/sendText/main", p.(*EvolutionProvider).endpoint)

	_, err = NewProvider(&config.ProviderConfig{Type: "carrier-pigeon"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSimulatedProvider(t *testing.T) {
	p := NewSimulatedProvider(config.SimulatedProviderConfig{}, zap.NewNop())
	first, err := p.Send(context.Background(), "+5511999999999", "oi")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, "SIM-1", gjson.Get(first.Raw, "key.id").String())
	assert.Equal(t, "+5511999999999", gjson.Get(first.Raw, "key.remoteJid").String())

	second, err := p.Send(context.Background(), "+5511999999999", "oi")
	require.NoError(t, err)
	assert.Equal(t, "SIM-2", gjson.Get(second.Raw, "key.id").String())

	slow := NewSimulatedProvider(config.SimulatedProviderConfig{Latency: time.Hour}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = slow.Send(ctx, "+5511999999999", "oi")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func newEvolution(t *testing.T, handler http.HandlerFunc) *EvolutionProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewEvolutionProvider(config.EvolutionProviderConfig{
		BaseURL:  srv.URL,
		APIKey:   "secret",
		Instance: "main",
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestEvolutionProvider_Success(t *testing.T) {
	var got sendTextRequest
	p := newEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message/sendText/main", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":{"id":"BAE5"},"status":"PENDING"}`))
	})

	res, err := p.Send(context.Background(), "+5511988887777", "Oi ANA!")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, `{"key":{"id":"BAE5"},"status":"PENDING"}`, res.Raw)
	assert.Equal(t, sendTextRequest{Number: "5511988887777", Text: "Oi ANA!"}, got)
}

func TestEvolutionProvider_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested array", `{"status":400,"response":{"message":["number does not exist"," "]}}`, "number does not exist"},
		{"message", `{"message":"instance not connected"}`, "instance not connected"},
		{"error", `{"error":"Bad Request"}`, "Bad Request"},
		{"no json", `oops`, "400 Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newEvolution(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			})
			res, err := p.Send(context.Background(), "+5511988887777", "oi")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
			assert.Equal(t, tt.body, res.Raw)
		})
	}
}

func TestEvolutionProvider_Unavailable(t *testing.T) {
	p := newEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := p.Send(context.Background(), "+5511988887777", "oi")
	assert.True(t, errors.Is(err, ErrUnavailable))

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	down, err := NewEvolutionProvider(config.EvolutionProviderConfig{BaseURL: srv.URL, Instance: "main", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	_, err = down.Send(context.Background(), "+5511988887777", "oi")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
