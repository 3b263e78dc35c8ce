package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gesturejokenpo/internal/game/gesture"
)

const maxAttempts = 3

// Resolver descobre o endereço (host:porta) de um serviço pelo nome.
// O ServiceCacheActor do pacote cluster satisfaz esta interface.
type Resolver interface {
	Discover(serviceName string) string
}

type invalidator interface {
	Invalidate(serviceName string)
}

// HTTPClassifier envia a imagem crua para POST {base}/predict.
type HTTPClassifier struct {
	baseURL     string
	serviceName string
	resolver    Resolver
	httpClient  *http.Client
}

// NewHTTP cria um cliente com URL fixa.
func NewHTTP(baseURL string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewDiscoveredHTTP cria um cliente que descobre o classificador via Consul a cada chamada.
func NewDiscoveredHTTP(serviceName string, resolver Resolver, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		serviceName: serviceName,
		resolver:    resolver,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClassifier) endpoint() (string, error) {
	if c.baseURL != "" {
		return c.baseURL + "/predict", nil
	}
	addr := c.resolver.Discover(c.serviceName)
	if addr == "" {
		return "", fmt.Errorf("%w: no healthy instance of %s", ErrUnavailable, c.serviceName)
	}
	return fmt.Sprintf("http://%s/predict", addr), nil
}

// Predict classifica a imagem, tentando novamente com backoff em falhas de rede e 5xx.
func (c *HTTPClassifier) Predict(ctx context.Context, image []byte) (gesture.Gesture, error) {
	url, err := c.endpoint()
	if err != nil {
		return gesture.None, err
	}

	var lastErr error
	backoff := 200 * time.Millisecond

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
		if err != nil {
			return gesture.None, fmt.Errorf("failed to create HTTP request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("[Classifier] WARN: Attempt %d/%d to %s failed: %v", attempt, maxAttempts, url, err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return decodePrediction(body)
			case resp.StatusCode < 500:
				return gesture.None, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
			default:
				lastErr = fmt.Errorf("received non-success status code: %s", resp.Status)
				log.Printf("[Classifier] WARN: Attempt %d/%d to %s received status: %s", attempt, maxAttempts, url, resp.Status)
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return gesture.None, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	// O endereço em cache pode ser de uma instância que morreu.
	if inv, ok := c.resolver.(invalidator); ok && c.serviceName != "" {
		inv.Invalidate(c.serviceName)
	}
	return gesture.None, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, maxAttempts, lastErr)
}
