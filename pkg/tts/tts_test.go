package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-visionaid/internal/timeutil"
	"github.com/teslashibe/go-visionaid/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	result, err := mock.Synthesize(ctx, "Hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Audio) == 0 {
		t.Error("expected audio data")
	}
	if result.CharCount != 11 {
		t.Errorf("expected 11 chars, got %d", result.CharCount)
	}
	if result.Format.SampleRate != 24000 {
		t.Errorf("expected 24000 sample rate, got %d", result.Format.SampleRate)
	}
	if got := mock.Texts(); len(got) != 1 || got[0] != "Hello world" {
		t.Errorf("Texts() = %v", got)
	}

	mock.Close()
	if !mock.Closed() {
		t.Error("expected Closed() after Close")
	}
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)
	ctx := context.Background()

	if _, err := mock.Synthesize(ctx, "Hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(ctx); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
}

func TestFunctionalOptions(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithVoice("en-US-Neural2-F"),
		tts.WithLanguage("en-GB"),
		tts.WithSampleRate(16000),
		tts.WithSpeakingRate(1.2),
		tts.WithTimeout(5*time.Second),
	)

	if cfg.VoiceID != "en-US-Neural2-F" {
		t.Errorf("VoiceID = %s", cfg.VoiceID)
	}
	if cfg.LanguageCode != "en-GB" {
		t.Errorf("LanguageCode = %s", cfg.LanguageCode)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d", cfg.SampleRate)
	}
	if cfg.SpeakingRate != 1.2 {
		t.Errorf("SpeakingRate = %v", cfg.SpeakingRate)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := tts.DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	cfg.APIKey = "test-key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
	}
	for _, tc := range tests {
		err := &tts.APIError{StatusCode: tc.code, Provider: "test"}
		if err.IsRetryable() != tc.retryable {
			t.Errorf("IsRetryable(%d) = %v, want %v", tc.code, err.IsRetryable(), tc.retryable)
		}
	}
}

func TestAudioFormatDuration(t *testing.T) {
	f := tts.PCM16Mono(24000)
	if got := f.DurationOf(48000); got != time.Second {
		t.Errorf("DurationOf(48000) = %v, want 1s", got)
	}
	if got := (tts.AudioFormat{}).DurationOf(100); got != 0 {
		t.Errorf("zero format duration = %v", got)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	failing := tts.WithError(errors.New("down"))
	working := tts.NewMock()

	chain, err := tts.NewChain([]tts.Provider{failing, working}, tts.WithCache(0))
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	if _, err := chain.Synthesize(ctx, "hello"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(working.Texts()) != 1 {
		t.Error("expected fallback provider to be used")
	}
	if err := chain.Health(ctx); err != nil {
		t.Errorf("Health: %v", err)
	}

	allBad, _ := tts.NewChain([]tts.Provider{failing, tts.WithError(errors.New("also down"))})
	_, err = allBad.Synthesize(ctx, "hello")
	var chainErr *tts.ChainError
	if !errors.As(err, &chainErr) || len(chainErr.Attempts) != 2 {
		t.Errorf("expected ChainError with 2 attempts, got %v", err)
	}

	if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestChain_BenchesFailedProvider(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	failing := tts.WithError(errors.New("down"))
	working := tts.NewMock()

	chain, _ := tts.NewChain([]tts.Provider{failing, working},
		tts.WithCooldown(10*time.Second),
		tts.WithChainClock(clock),
		tts.WithCache(0),
	)

	for _, text := range []string{"one", "two", "three"} {
		if _, err := chain.Synthesize(ctx, text); err != nil {
			t.Fatalf("Synthesize(%q): %v", text, err)
		}
	}
	if got := len(failing.Texts()); got != 1 {
		t.Errorf("benched provider called %d times, want 1", got)
	}
	if b := chain.Benched(); !b[0] || b[1] {
		t.Errorf("Benched() = %v", b)
	}

	clock.Advance(10 * time.Second)
	if _, err := chain.Synthesize(ctx, "four"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := len(failing.Texts()); got != 2 {
		t.Errorf("provider not retried after cooldown, calls = %d", got)
	}
}

func TestChain_CachesPhrases(t *testing.T) {
	ctx := context.Background()
	mock := tts.NewMock()
	chain, _ := tts.NewChain([]tts.Provider{mock}, tts.WithCache(4))

	first, err := chain.Synthesize(ctx, "Text extraction enabled")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	second, _ := chain.Synthesize(ctx, " Text extraction enabled ")
	if first != second {
		t.Error("expected cached result")
	}
	if got := len(mock.Texts()); got != 1 {
		t.Errorf("provider called %d times, want 1", got)
	}
	if _, err := chain.Synthesize(ctx, "   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAI_Synthesize(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["response_format"] != "pcm" {
			t.Errorf("response_format = %v", body["response_format"])
		}
		w.Write(make([]byte, 4800))
	}))
	defer srv.Close()

	p, err := tts.NewOpenAI(
		tts.WithAPIKey("sk-test"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetry(2, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "car detected")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) != 4800 {
		t.Errorf("audio bytes = %d, want 4800", len(result.Audio))
	}
	if result.Duration != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", result.Duration)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestOpenAI_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	p, _ := tts.NewOpenAI(tts.WithAPIKey("bad"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))

	_, err := p.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 || apiErr.Message != "bad key" {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}

func TestOpenAI_EmptyText(t *testing.T) {
	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"))
	if _, err := p.Synthesize(context.Background(), "  "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestGoogle_Synthesize(t *testing.T) {
	// 44-byte RIFF header declaring 16kHz followed by 3200 bytes of samples.
	wav := make([]byte, 44+3200)
	copy(wav[0:4], "RIFF")
	copy(wav[8:12], "WAVE")
	binary.LittleEndian.PutUint32(wav[24:28], 16000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "text:synthesize") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input struct {
				Text string `json:"text"`
			} `json:"input"`
			AudioConfig struct {
				AudioEncoding string `json:"audioEncoding"`
			} `json:"audioConfig"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Input.Text != "Text extraction enabled" {
			t.Errorf("text = %q", req.Input.Text)
		}
		if req.AudioConfig.AudioEncoding != "LINEAR16" {
			t.Errorf("encoding = %q", req.AudioConfig.AudioEncoding)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(wav),
		})
	}))
	defer srv.Close()

	p, err := tts.NewGoogle(context.Background(), tts.WithAPIKey("key"), tts.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "Text extraction enabled")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) != 3200 {
		t.Errorf("audio bytes = %d, want 3200", len(result.Audio))
	}
	if result.Format.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", result.Format.SampleRate)
	}
	if result.Duration != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", result.Duration)
	}
}

func TestGoogle_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
	}))
	defer srv.Close()

	p, err := tts.NewGoogle(context.Background(), tts.WithAPIKey("key"), tts.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}

	_, err = p.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 403 {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
}
