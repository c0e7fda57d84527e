package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// DefaultImaggaBaseURL is the Imagga REST endpoint.
const DefaultImaggaBaseURL = "https://api.imagga.com"

// Imagga queries the Imagga tagging endpoint. It reports one modality
// (whole-image labels) with confidences on a 0–100 scale, and returns labels
// already translated into the requested language.
type Imagga struct {
	apiKey    string
	apiSecret string
	language  string
	baseURL   string
	client    *http.Client
}

// NewImagga constructs an Imagga detector. An empty language selects "pt";
// an empty baseURL selects DefaultImaggaBaseURL.
func NewImagga(apiKey, apiSecret, language, baseURL string, client *http.Client) *Imagga {
	if language == "" {
		language = "pt"
	}
	if baseURL == "" {
		baseURL = DefaultImaggaBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Imagga{apiKey: apiKey, apiSecret: apiSecret, language: language, baseURL: baseURL, client: client}
}

// Localized implements localizer.
func (*Imagga) Localized() bool {
	return true
}

type imaggaResponse struct {
	Result struct {
		Tags []struct {
			Confidence *float64          `json:"confidence"`
			Tag        map[string]string `json:"tag"`
		} `json:"tags"`
	} `json:"result"`
	Status struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"status"`
}

// Detect implements Detector. URLs are sent as a query parameter; bytes are
// uploaded as multipart form data.
func (m *Imagga) Detect(ctx context.Context, img Image) ([]domain.Candidate, error) {
	req, err := m.newRequest(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("imagga: %w", err)
	}
	req.SetBasicAuth(m.apiKey, m.apiSecret)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagga: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagga: unexpected status %d", resp.StatusCode)
	}

	var parsed imaggaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("imagga: decode: %w", err)
	}
	if parsed.Status.Type != "" && parsed.Status.Type != "success" {
		return nil, fmt.Errorf("imagga: provider error: %s", parsed.Status.Text)
	}

	out := make([]domain.Candidate, 0, len(parsed.Result.Tags))
	for _, t := range parsed.Result.Tags {
		out = append(out, domain.Candidate{
			Label:      t.Tag[m.language],
			Confidence: score(t.Confidence) / 100,
			Modality:   domain.ModalityLabel,
		})
	}
	return out, nil
}

func (m *Imagga) newRequest(ctx context.Context, img Image) (*http.Request, error) {
	q := url.Values{"language": {m.language}}
	endpoint := m.baseURL + "/v2/tags"

	if img.URL != "" {
		q.Set("image_url", img.URL)
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "upload")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+q.Encode(), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}
