// Package trivia talks to the Open Trivia DB and API-Ninjas facts APIs.
package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"factzap-service/internal/domain"
)

// DefaultBaseURL is the public Open Trivia DB endpoint.
const DefaultBaseURL = "https://opentdb.com"

// Client fetches trivia questions and category statistics. Question and
// answer text arrives HTML-escaped and is decoded before leaving this
// package.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type triviaResponse struct {
	ResponseCode int              `json:"response_code"`
	Results      []triviaQuestion `json:"results"`
}

type triviaQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// FetchQuestions requests amount questions matching the optional category,
// difficulty, and type filters. A non-zero response code or an empty result
// list is an error; no session should start from it.
func (c *Client) FetchQuestions(ctx context.Context, params domain.QuizParams) ([]domain.Question, error) {
	query := url.Values{}
	query.Set("amount", strconv.Itoa(params.Amount))
	if params.Category > 0 {
		query.Set("category", strconv.Itoa(params.Category))
	}
	if params.Difficulty != "" {
		query.Set("difficulty", params.Difficulty)
	}
	if params.Type != "" {
		query.Set("type", params.Type)
	}

	var payload triviaResponse
	if err := c.getJSON(ctx, c.baseURL+"/api.php?"+query.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("%w: trivia api response code %d", domain.ErrNoQuestions, payload.ResponseCode)
	}
	if len(payload.Results) == 0 {
		return nil, domain.ErrNoQuestions
	}

	questions := make([]domain.Question, 0, len(payload.Results))
	for _, q := range payload.Results {
		questions = append(questions, decodeQuestion(q))
	}
	return questions, nil
}

type countsResponse struct {
	Overall    domain.CategoryCount            `json:"overall"`
	Categories map[string]domain.CategoryCount `json:"categories"`
}

// CategoryCounts returns the question inventory per category ID.
func (c *Client) CategoryCounts(ctx context.Context) (map[string]domain.CategoryCount, error) {
	var payload countsResponse
	if err := c.getJSON(ctx, c.baseURL+"/api_count_global.php", &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: trivia api status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode trivia response: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

// decodeQuestion unescapes HTML entities so "Who&#039;s there?" reads as the
// human text the provider meant.
func decodeQuestion(q triviaQuestion) domain.Question {
	incorrect := make([]string, len(q.IncorrectAnswers))
	for i, a := range q.IncorrectAnswers {
		incorrect[i] = html.UnescapeString(a)
	}
	return domain.Question{
		Type:             q.Type,
		Difficulty:       q.Difficulty,
		Category:         html.UnescapeString(q.Category),
		Text:             html.UnescapeString(q.Question),
		CorrectAnswer:    html.UnescapeString(q.CorrectAnswer),
		IncorrectAnswers: incorrect,
	}
}
