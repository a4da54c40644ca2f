// Package tesseract runs OCR locally through libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/teslashibe/go-visionaid/pkg/ocr"
)

// Config configures the local recognizer.
type Config struct {
	Language string // e.g. "eng"
}

// DefaultConfig returns English page-auto segmentation.
func DefaultConfig() Config {
	return Config{Language: "eng"}
}

// Recognizer wraps a gosseract client. The client is not safe for
// concurrent use, so calls are serialized.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

// New creates a recognizer.
func New(cfg Config, logger *slog.Logger) (*Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}

	return &Recognizer{
		client: client,
		logger: logger.With("component", "ocr.tesseract"),
	}, nil
}

// Process recognizes text in img.
func (r *Recognizer) Process(ctx context.Context, img image.Image) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	data, err := ocr.EncodePNG(img)
	if err != nil {
		return ocr.Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, fmt.Errorf("set OCR image: %w", err)
	}

	text, err := r.client.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("extract text: %w", err)
	}

	// Word boxes only feed the confidence score.
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		r.logger.Debug("bounding boxes unavailable", "error", err)
		boxes = nil
	}

	return ocr.Result{
		Text:       strings.TrimSpace(text),
		Confidence: averageConfidence(boxes),
	}, nil
}

// Close releases the tesseract client.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

// averageConfidence converts tesseract's 0-100 word scores to 0-1.
func averageConfidence(boxes []gosseract.BoundingBox) float64 {
	var total float64
	var n int
	for _, b := range boxes {
		if b.Confidence > 0 {
			total += b.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n) / 100
}

var _ ocr.Recognizer = (*Recognizer)(nil)
