// Package llm is the HTTP transport to the hosted generative-language
// reviewer service. It issues one request per call and classifies every
// failure into the categories the rotating client acts on.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
)

// Reply is a successful generation: the text plus the model identifier
// the service reports it actually used.
type Reply struct {
	Text      string
	ModelUsed string
}

// HTTPClient calls the generateContent endpoint of the reviewer service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new reviewer service client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type generateRequest struct {
	SystemInstruction *contentBlock  `json:"system_instruction,omitempty"`
	Contents          []contentBlock `json:"contents"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content contentBlock `json:"content"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate issues one generation request under the given credential and
// model tier. Transport failures and non-2xx replies come back as errors
// for the caller to classify; a 2xx body that fails structural validation
// comes back wrapping ErrMalformedResponse.
func (c *HTTPClient) Generate(
	ctx context.Context,
	cred domain.Credential,
	tier string,
	system string,
	content string,
) (*Reply, error) {
	reqBody := generateRequest{
		Contents: []contentBlock{
			{Role: "user", Parts: []part{{Text: content}}},
		},
	}
	if system != "" {
		reqBody.SystemInstruction = &contentBlock{Parts: []part{{Text: system}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, tier)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cred.Secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reviewer call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiErrorFrom(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	if genResp.ModelVersion == "" {
		return nil, fmt.Errorf("%w: missing model version", ErrMalformedResponse)
	}

	var text string
	for _, p := range genResp.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate text", ErrMalformedResponse)
	}

	return &Reply{Text: text, ModelUsed: genResp.ModelVersion}, nil
}

func apiErrorFrom(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var errBody struct {
		Error struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil {
		apiErr.Status = errBody.Error.Status
		apiErr.Message = errBody.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	return apiErr
}
