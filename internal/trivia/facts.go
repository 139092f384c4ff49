package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"factzap-service/internal/domain"
)

// DefaultFactsBaseURL is the public API-Ninjas endpoint.
const DefaultFactsBaseURL = "https://api.api-ninjas.com"

// FactClient fetches random facts from API-Ninjas.
type FactClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewFactClient(baseURL, apiKey string, timeout time.Duration) *FactClient {
	if baseURL == "" {
		baseURL = DefaultFactsBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FactClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type factResponse struct {
	Fact string `json:"fact"`
}

// Fact returns one random fact. The API replies with a single-element list.
func (c *FactClient) Fact(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/facts", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: facts api status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}

	var facts []factResponse
	if err := json.NewDecoder(resp.Body).Decode(&facts); err != nil {
		return "", fmt.Errorf("%w: decode facts response: %v", domain.ErrRemoteUnavailable, err)
	}
	if len(facts) == 0 || facts[0].Fact == "" {
		return "", fmt.Errorf("%w: empty facts response", domain.ErrRemoteUnavailable)
	}
	return facts[0].Fact, nil
}
