package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/model"
	"lecturenotes/internal/pipeline"
	"lecturenotes/internal/storage"
	"lecturenotes/internal/stt"
	"lecturenotes/internal/telemetry"
)

// scriptedProvider returns a fixed transcript, or an error when the uploaded
// file does not start with the RIFF magic
type scriptedProvider struct {
	transcript string
	seenPaths  []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Transcribe(ctx context.Context, audioPath string) (*stt.Result, error) {
	p.seenPaths = append(p.seenPaths, audioPath)
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		return nil, errors.New("could not decode audio")
	}
	return &stt.Result{Transcript: p.transcript, Provider: p.Name()}, nil
}

type testServer struct {
	router   *gin.Engine
	store    *storage.TempStore
	provider *scriptedProvider
}

func newTestServer(t *testing.T, transcript string, maxBytes int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewTempStore(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("NewTempStore: %v", err)
	}
	provider := &scriptedProvider{transcript: transcript}
	p := pipeline.New(provider, &ai.TruncateSummarizer{MaxChars: 600}, &ai.TemplateQuiz{SnippetChars: ai.TemplateSnippetChars}, pipeline.Options{})

	h := NewHandler(p, store, telemetry.NewTracker(nil, 30), Options{MaxUploadBytes: maxBytes})
	return &testServer{router: NewRouter(h, "*"), store: store, provider: provider}
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(content)
	} else {
		_ = writer.WriteField("note", "no file here")
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func (s *testServer) assertNoLeftovers(t *testing.T) {
	t.Helper()
	left, err := s.store.Leftovers()
	if err != nil {
		t.Fatalf("Leftovers: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("Expected no temp files after the request, found %v", left)
	}
}

func TestProcessAudio_Success(t *testing.T) {
	transcript := "Newton's second law relates force, mass and acceleration."
	s := newTestServer(t, transcript, 1<<20)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "file", "lecture.wav", []byte("RIFF....WAVEfmt ")))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp model.ProcessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.Transcript != transcript {
		t.Errorf("Expected transcript %q, got %q", transcript, resp.Transcript)
	}
	if !strings.HasPrefix(resp.Summary, ai.SummaryLabel+transcript) {
		t.Errorf("Expected summary to start with the label and transcript, got %q", resp.Summary)
	}
	if !strings.Contains(resp.Quiz, "A) "+transcript[:30]+"...") {
		t.Errorf("Unexpected quiz %q", resp.Quiz)
	}
	if resp.Metrics == nil {
		t.Fatal("Expected metrics in response")
	}
	if resp.Metrics.InferenceTime < 0 {
		t.Errorf("Expected non-negative inference_time, got %v", resp.Metrics.InferenceTime)
	}
	if want := telemetry.ProcessingSpeed(30, resp.Metrics.InferenceTime); resp.Metrics.ProcessingSpeed != want {
		t.Errorf("Expected processing_speed %v, got %v", want, resp.Metrics.ProcessingSpeed)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}

	if len(s.provider.seenPaths) != 1 || !strings.Contains(s.provider.seenPaths[0], storage.TempPrefix) {
		t.Errorf("Expected provider to read a temp upload, got %v", s.provider.seenPaths)
	}
	s.assertNoLeftovers(t)
}

func TestProcessAudio_NoSpeech(t *testing.T) {
	s := newTestServer(t, "  hmm ", 1<<20)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "audio", "silence.wav", []byte("RIFF silence")))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp model.ProcessResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Summary != "No speech detected." {
		t.Errorf("Expected placeholder summary, got %q", resp.Summary)
	}
	s.assertNoLeftovers(t)
}

func TestProcessAudio_CorruptAudio(t *testing.T) {
	s := newTestServer(t, "unused", 1<<20)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "file", "notes.txt", []byte("this is plainly not audio")))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body["error"] == "" {
		t.Error("Expected an error message")
	}
	if body["stage"] != pipeline.StageTranscribe {
		t.Errorf("Expected stage %q, got %q", pipeline.StageTranscribe, body["stage"])
	}
	s.assertNoLeftovers(t)
}

func TestProcessAudio_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		expected int
	}{
		{
			name:     "missing file field",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "", "", nil) },
			expected: http.StatusBadRequest,
		},
		{
			name:     "empty file",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "empty.wav", nil) },
			expected: http.StatusBadRequest,
		},
		{
			name:     "too large",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "big.wav", bytes.Repeat([]byte("R"), 200)) },
			expected: http.StatusRequestEntityTooLarge,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/process-audio", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			expected: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "unused", 100)

			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, tt.req(t))

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("Expected error body, got %s", w.Body.String())
			}
			if len(s.provider.seenPaths) != 0 {
				t.Error("Expected provider not to be called")
			}
			s.assertNoLeftovers(t)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "unused", 1<<20)

	req := httptest.NewRequest(http.MethodOptions, "/process-audio", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin, got %q", got)
	}
}

func TestCORSAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware("https://a.example, https://b.example"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		origin   string
		expected string
	}{
		{"https://b.example", "https://b.example"},
		{"https://evil.example", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.expected {
			t.Errorf("Origin %s: expected %q, got %q", tt.origin, tt.expected, got)
		}
	}
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, "unused", 1<<20)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
