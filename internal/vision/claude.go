package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = "claude-sonnet-4-20250514"

// claudePrompt asks for labels in the same shape a dedicated vision API
// returns, so the usual vocabulary applies to the answer.
const claudePrompt = `You label photos of lost objects for a lost-and-found catalog.

List the objects and general categories visible in the image, in English,
using short singular nouns (for example "Backpack", "Wallet", "Mobile phone").
For each one give a confidence between 0 and 1 and a kind: "object" for a
distinct item you can point at, "label" for a general description of the photo.

Answer with JSON only, no prose:
{"labels":[{"label":"Backpack","confidence":0.93,"kind":"object"}]}`

// Claude asks an Anthropic vision model for labels. Images given by URL are
// downloaded first because the request carries the image inline.
type Claude struct {
	client *anthropic.Client
	model  string
	fetch  *http.Client
}

// NewClaude constructs a Claude detector. Extra request options (base URL,
// HTTP client) may be supplied for testing.
func NewClaude(apiKey, model string, httpClient *http.Client, opts ...option.RequestOption) *Claude {
	if model == "" {
		model = DefaultClaudeModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(all...)
	return &Claude{client: &client, model: model, fetch: httpClient}
}

type claudeAnswer struct {
	Labels []struct {
		Label      string   `json:"label"`
		Confidence *float64 `json:"confidence"`
		Kind       string   `json:"kind"`
	} `json:"labels"`
}

// Detect implements Detector.
func (c *Claude) Detect(ctx context.Context, img Image) ([]domain.Candidate, error) {
	data, mimeType := img.Data, img.MIMEType
	if img.URL != "" {
		var err error
		data, mimeType, err = fetchImage(ctx, c.fetch, img.URL)
		if err != nil {
			return nil, fmt.Errorf("claude: %w", err)
		}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(claudePrompt),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return parseClaudeAnswer(block.Text)
		}
	}
	return nil, errors.New("claude: no text content in response")
}

// parseClaudeAnswer extracts the JSON object from the model's reply, which may
// be wrapped in a code fence or surrounded by stray text.
func parseClaudeAnswer(text string) ([]domain.Candidate, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, errors.New("claude: no JSON object in response")
	}

	var answer claudeAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return nil, fmt.Errorf("claude: decode answer: %w", err)
	}

	out := make([]domain.Candidate, 0, len(answer.Labels))
	for _, l := range answer.Labels {
		modality := domain.ModalityLabel
		if strings.EqualFold(l.Kind, "object") {
			modality = domain.ModalityObject
		}
		out = append(out, domain.Candidate{Label: l.Label, Confidence: score(l.Confidence), Modality: modality})
	}
	return out, nil
}
