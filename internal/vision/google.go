package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// DefaultGoogleBaseURL is the Cloud Vision REST endpoint.
const DefaultGoogleBaseURL = "https://vision.googleapis.com"

// googleMaxResults caps the annotations returned per feature.
const googleMaxResults = 10

// maxResponseBytes bounds any backend response body we decode.
const maxResponseBytes = 2 << 20

// GoogleVision queries Cloud Vision label detection and localized object
// detection concurrently and merges both candidate lists.
type GoogleVision struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleVision constructs a GoogleVision detector. An empty baseURL selects
// DefaultGoogleBaseURL; a nil client selects http.DefaultClient.
func NewGoogleVision(apiKey, baseURL string, client *http.Client) *GoogleVision {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleVision{apiKey: apiKey, baseURL: baseURL, client: client}
}

type googleRequest struct {
	Requests []googleImageRequest `json:"requests"`
}

type googleImageRequest struct {
	Image    googleImage     `json:"image"`
	Features []googleFeature `json:"features"`
}

type googleImage struct {
	Content string             `json:"content,omitempty"`
	Source  *googleImageSource `json:"source,omitempty"`
}

type googleImageSource struct {
	ImageURI string `json:"imageUri"`
}

type googleFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type googleResponse struct {
	Responses []struct {
		LabelAnnotations []struct {
			Description string   `json:"description"`
			Score       *float64 `json:"score"`
		} `json:"labelAnnotations"`
		LocalizedObjectAnnotations []struct {
			Name  string   `json:"name"`
			Score *float64 `json:"score"`
		} `json:"localizedObjectAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Detect implements Detector. Both modalities must succeed; a failure in
// either one fails the call.
func (g *GoogleVision) Detect(ctx context.Context, img Image) ([]domain.Candidate, error) {
	var labels, objects []domain.Candidate

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		labels, err = g.annotate(ctx, img, "LABEL_DETECTION")
		return err
	})
	eg.Go(func() error {
		var err error
		objects, err = g.annotate(ctx, img, "OBJECT_LOCALIZATION")
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return append(labels, objects...), nil
}

// annotate performs one images:annotate call for a single feature.
func (g *GoogleVision) annotate(ctx context.Context, img Image, feature string) ([]domain.Candidate, error) {
	reqImage := googleImage{}
	if img.URL != "" {
		reqImage.Source = &googleImageSource{ImageURI: img.URL}
	} else {
		reqImage.Content = base64.StdEncoding.EncodeToString(img.Data)
	}
	body, err := json.Marshal(googleRequest{Requests: []googleImageRequest{{
		Image:    reqImage,
		Features: []googleFeature{{Type: feature, MaxResults: googleMaxResults}},
	}}})
	if err != nil {
		return nil, fmt.Errorf("google %s: encode: %w", feature, err)
	}

	endpoint := g.baseURL + "/v1/images:annotate?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("google %s: %w", feature, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google %s: %w", feature, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google %s: unexpected status %d", feature, resp.StatusCode)
	}

	var parsed googleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("google %s: decode: %w", feature, err)
	}
	if len(parsed.Responses) == 0 {
		return nil, nil
	}
	r := parsed.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("google %s: provider error %d: %s", feature, r.Error.Code, r.Error.Message)
	}

	var out []domain.Candidate
	for _, a := range r.LabelAnnotations {
		out = append(out, domain.Candidate{Label: a.Description, Confidence: score(a.Score), Modality: domain.ModalityLabel})
	}
	for _, a := range r.LocalizedObjectAnnotations {
		out = append(out, domain.Candidate{Label: a.Name, Confidence: score(a.Score), Modality: domain.ModalityObject})
	}
	return out, nil
}

// score maps a missing score to zero confidence so the candidate is dropped
// by thresholding.
func score(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}
