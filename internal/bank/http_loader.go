package bank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"quiz-player-service/internal/domain"
)

// HTTPLoader fetches bank documents from a static base URL. Every request
// carries Cache-Control: no-store so intermediaries never serve stale
// content; bank freshness is handled by the caching repository in front of
// this loader, not by HTTP caches.
type HTTPLoader struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLoader(baseURL string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{baseURL: baseURL, client: client}
}

func (l *HTTPLoader) LoadBank(ctx context.Context, subject string) (domain.Bank, error) {
	target, err := url.JoinPath(l.baseURL, subject)
	if err != nil {
		return domain.Bank{}, fmt.Errorf("bank url for %s: %w", subject, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.Bank{}, fmt.Errorf("bank request for %s: %w", subject, err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := l.client.Do(req)
	if err != nil {
		return domain.Bank{}, fmt.Errorf("fetch bank %s: %w", subject, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Bank{}, fmt.Errorf("%w: %s", domain.ErrBankNotFound, subject)
	case resp.StatusCode != http.StatusOK:
		return domain.Bank{}, fmt.Errorf("fetch bank %s: unexpected status %d", subject, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Bank{}, fmt.Errorf("read bank %s: %w", subject, err)
	}
	return Parse(subject, data)
}
