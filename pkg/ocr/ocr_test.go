package ocr

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePNG(t *testing.T) {
	_, err := EncodePNG(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = EncodePNG(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	data, err := EncodePNG(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestResultEmpty(t *testing.T) {
	assert.True(t, Result{Text: " \n"}.Empty())
	assert.False(t, Result{Text: "EXIT"}.Empty())
}

func TestMock(t *testing.T) {
	m := &Mock{Result: Result{Text: "STOP"}}
	r, err := m.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, "STOP", r.Text)
	assert.Equal(t, 1, m.Calls())
}

func newVisionServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "images:annotate") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Requests []struct {
				Features []struct {
					Type string `json:"type"`
				} `json:"features"`
			} `json:"requests"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Requests) != 1 || req.Requests[0].Features[0].Type != "TEXT_DETECTION" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestGoogleVision_Process(t *testing.T) {
	srv := newVisionServer(t, `{"responses":[{"fullTextAnnotation":{"text":"  EXIT\nDOOR 3 ","pages":[{"confidence":0.9}]}}]}`, http.StatusOK)
	defer srv.Close()

	g, err := NewGoogleVision(context.Background(), GoogleConfig{APIKey: "k", Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	r, err := g.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.Equal(t, "EXIT\nDOOR 3", r.Text)
	assert.InDelta(t, 0.9, r.Confidence, 1e-9)
}

func TestGoogleVision_NoText(t *testing.T) {
	srv := newVisionServer(t, `{"responses":[{}]}`, http.StatusOK)
	defer srv.Close()

	g, err := NewGoogleVision(context.Background(), GoogleConfig{APIKey: "k", Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	r, err := g.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.True(t, r.Empty())
}

func TestGoogleVision_ResponseError(t *testing.T) {
	srv := newVisionServer(t, `{"responses":[{"error":{"code":3,"message":"bad image"}}]}`, http.StatusOK)
	defer srv.Close()

	g, err := NewGoogleVision(context.Background(), GoogleConfig{APIKey: "k", Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	_, err = g.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.ErrorContains(t, err, "bad image")
}

func TestGoogleVision_HTTPError(t *testing.T) {
	srv := newVisionServer(t, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	defer srv.Close()

	g, err := NewGoogleVision(context.Background(), GoogleConfig{APIKey: "k", Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	_, err = g.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.Error(t, err)
}
