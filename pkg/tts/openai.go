package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-visionaid/internal/httpc"
)

const (
	openAISpeechURL = "https://api.openai.com/v1/audio/speech"
	providerOpenAI  = "openai"

	// The "pcm" response format is always 24kHz mono.
	openAISampleRate = 24000

	// Announcements are a sentence or two; anything larger is an error page.
	maxSpeechBytes = 8 << 20
)

// OpenAI voice and model options.
const (
	VoiceAlloy   = "alloy"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"

	ModelTTS1 = "tts-1"
)

type speechRequest struct {
	Model  string  `json:"model"`
	Voice  string  `json:"voice"`
	Input  string  `json:"input"`
	Format string  `json:"response_format"`
	Speed  float64 `json:"speed,omitempty"`
}

// OpenAI implements Provider for the OpenAI speech endpoint.
type OpenAI struct {
	config *Config
	client *http.Client
	url    string
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI provider. The nova voice on tts-1 is used
// unless overridden.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceNova
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	url := cfg.BaseURL
	if url == "" {
		url = openAISpeechURL
	}
	return &OpenAI{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		url:    url,
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Synthesize requests raw PCM for text.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}

	body, err := json.Marshal(speechRequest{
		Model:  o.config.ModelID,
		Voice:  o.config.VoiceID,
		Input:  text,
		Format: "pcm",
		Speed:  o.config.SpeakingRate,
	})
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}

	start := time.Now()
	audio, err := o.post(ctx, body)
	if err != nil {
		return nil, err
	}
	// A truncated stream can end mid-sample.
	audio = audio[:len(audio)&^1]

	format := PCM16Mono(openAISampleRate)
	res := &AudioResult{
		Audio:     audio,
		Format:    format,
		Duration:  format.DurationOf(len(audio)),
		CharCount: len(text),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	o.logger.Debug("synthesized", "chars", res.CharCount, "audio", res.Duration, "latency_ms", res.LatencyMs)
	return res, nil
}

// post sends body and returns the response audio. Transport errors, 429
// and 5xx are retried with linear backoff, or after Retry-After when the
// server sends one.
func (o *OpenAI) post(ctx context.Context, body []byte) ([]byte, error) {
	var (
		lastErr error
		wait    time.Duration
	)
	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = o.config.RetryDelay * time.Duration(attempt)
			}
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
			o.logger.Warn("retrying speech request", "attempt", attempt, "error", lastErr)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerOpenAI, err)
		}
		req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			lastErr, wait = WrapError(providerOpenAI, err), 0
			continue
		}

		if resp.StatusCode == http.StatusOK {
			audio, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes))
			resp.Body.Close()
			if err != nil {
				return nil, WrapError(providerOpenAI, fmt.Errorf("read audio: %w", err))
			}
			return audio, nil
		}

		apiErr := decodeOpenAIError(resp)
		wait = retryAfter(resp.Header.Get("Retry-After"))
		resp.Body.Close()
		if !apiErr.IsRetryable() {
			return nil, apiErr
		}
		lastErr = apiErr
	}
	return nil, lastErr
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Health lists models to verify the key.
func (o *OpenAI) Health(ctx context.Context) error {
	url := strings.TrimSuffix(o.url, "/audio/speech") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return WrapError(providerOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return WrapError(providerOpenAI, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeOpenAIError(resp)
	}
	return nil
}

// Close drops idle connections.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func decodeOpenAIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg, Provider: providerOpenAI}
}

var _ Provider = (*OpenAI)(nil)
