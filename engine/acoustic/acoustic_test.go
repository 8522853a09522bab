package acoustic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sidecar(t *testing.T, handler http.HandlerFunc) *Analyzer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := New(srv.URL, testLogger())
	a.httpClient = srv.Client()
	return a
}

func featureHandler(f Features) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AudioURL == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(analyzeResponse{Features: &f})
	}
}

func TestAnalyzeDetectsVoice(t *testing.T) {
	a := sidecar(t, featureHandler(Features{
		SpectralCentroid: 2200,
		ZeroCrossingRate: 0.05,
		MFCCVariance:     40,
	}))

	out := a.Analyze(context.Background(), "https://www.youtube.com/watch?v=x")
	if !out.Available() {
		t.Fatalf("expected verdict, got unavailable: %s", out.Reason)
	}
	if !out.HasVoice {
		t.Fatal("expected voice detected")
	}
	if out.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %g", out.Confidence)
	}
}

func TestAnalyzeRejectsOutOfBandCentroid(t *testing.T) {
	a := sidecar(t, featureHandler(Features{
		SpectralCentroid: 6000, // well above speech band
		ZeroCrossingRate: 0.05,
		MFCCVariance:     80,
	}))

	out := a.Analyze(context.Background(), "url")
	if !out.Available() || out.HasVoice {
		t.Fatalf("expected no-voice verdict, got %+v", out)
	}
	if out.Confidence != 1 {
		t.Fatalf("confidence should clamp to 1, got %g", out.Confidence)
	}
}

func TestAnalyzeSidecarErrorIsUnavailable(t *testing.T) {
	a := sidecar(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(analyzeResponse{Err: "download failed"})
	})

	out := a.Analyze(context.Background(), "url")
	if out.Available() {
		t.Fatal("expected unavailable outcome")
	}
}

func TestAnalyzeHTTPFailureIsUnavailable(t *testing.T) {
	a := sidecar(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	out := a.Analyze(context.Background(), "url")
	if out.Available() {
		t.Fatal("expected unavailable outcome")
	}
}

func TestAnalyzeBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	a := sidecar(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	})

	for i := 0; i < 10; i++ {
		if out := a.Analyze(context.Background(), fmt.Sprintf("url-%d", i)); out.Available() {
			t.Fatal("expected unavailable outcome")
		}
	}
	if calls >= 10 {
		t.Fatalf("breaker never opened: %d sidecar calls", calls)
	}
}

func TestDetectedClampsConfidence(t *testing.T) {
	if got := Detected(true, 1.7); got.Confidence != 1 {
		t.Fatalf("expected clamp to 1, got %g", got.Confidence)
	}
	if got := Detected(false, -0.2); got.Confidence != 0 {
		t.Fatalf("expected clamp to 0, got %g", got.Confidence)
	}
}
