package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// GoogleConfig configures the Cloud Vision recognizer.
type GoogleConfig struct {
	APIKey          string
	CredentialsFile string
	Endpoint        string
	LanguageHints   []string
}

// GoogleVision implements Recognizer with Cloud Vision TEXT_DETECTION.
type GoogleVision struct {
	service *vision.Service
	hints   []string
	logger  *slog.Logger
}

// NewGoogleVision creates a Cloud Vision recognizer. Credentials are
// resolved in order: API key, credentials file, application default.
func NewGoogleVision(ctx context.Context, cfg GoogleConfig, logger *slog.Logger) (*GoogleVision, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		creds, err := google.FindDefaultCredentials(ctx, vision.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("ocr: find default credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ocr: create vision service: %w", err)
	}

	return &GoogleVision{
		service: svc,
		hints:   cfg.LanguageHints,
		logger:  logger.With("component", "ocr.google"),
	}, nil
}

// Process sends img for text detection and returns the full text.
func (g *GoogleVision) Process(ctx context.Context, img image.Image) (Result, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return Result{}, err
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	if len(g.hints) > 0 {
		req.Requests[0].ImageContext = &vision.ImageContext{LanguageHints: g.hints}
	}

	resp, err := g.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Result{}, fmt.Errorf("ocr: annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return Result{}, nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return Result{}, fmt.Errorf("ocr: annotate: code %d: %s", r.Error.Code, r.Error.Message)
	}

	var out Result
	switch {
	case r.FullTextAnnotation != nil:
		out.Text = r.FullTextAnnotation.Text
		out.Confidence = pageConfidence(r.FullTextAnnotation.Pages)
	case len(r.TextAnnotations) > 0:
		out.Text = r.TextAnnotations[0].Description
	}
	out.Text = strings.TrimSpace(out.Text)

	g.logger.Debug("text detected", "chars", len(out.Text))
	return out, nil
}

// Close releases resources.
func (g *GoogleVision) Close() error {
	return nil
}

func pageConfidence(pages []*vision.Page) float64 {
	var sum float64
	var n int
	for _, p := range pages {
		if p.Confidence > 0 {
			sum += p.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

var _ Recognizer = (*GoogleVision)(nil)
