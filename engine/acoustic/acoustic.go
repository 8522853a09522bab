// Package acoustic classifies voice presence from audio features. The
// feature extraction itself happens in a sidecar service; this package
// sends it an audio URL, receives scalar features back, and applies the
// voice-detection rule. Every failure mode is reported as an explicit
// Unavailable outcome rather than an error, because callers are
// expected to fall back to text heuristics.
package acoustic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/channelscope/channelscope/pkg/resilience"
)

// Features are the scalar audio features returned by the extraction
// sidecar for a short sample clip.
type Features struct {
	SpectralCentroid  float64 `json:"spectral_centroid"`
	ZeroCrossingRate  float64 `json:"zero_crossing_rate"`
	SpectralBandwidth float64 `json:"spectral_bandwidth"`
	MFCCVariance      float64 `json:"mfcc_variance"`
}

// Outcome is the tagged result of one analysis: either a verdict or an
// Unavailable marker carrying the reason.
type Outcome struct {
	HasVoice   bool
	Confidence float64
	Reason     string // non-empty means no verdict was produced
}

// Detected builds an available outcome.
func Detected(hasVoice bool, confidence float64) Outcome {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Outcome{HasVoice: hasVoice, Confidence: confidence}
}

// Unavailable builds an outcome with no verdict.
func Unavailable(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Available reports whether the outcome carries a verdict.
func (o Outcome) Available() bool { return o.Reason == "" }

// analyzeRequest is the sidecar request body.
type analyzeRequest struct {
	AudioURL string `json:"audio_url"`
}

// analyzeResponse is the sidecar response body. Err is set when the
// sidecar could not download or decode the sample.
type analyzeResponse struct {
	Features *Features `json:"features"`
	Err      string    `json:"error,omitempty"`
}

// Analyzer calls the feature-extraction sidecar. A circuit breaker
// stops hammering a sidecar that keeps failing; while the circuit is
// open every analysis is Unavailable.
type Analyzer struct {
	endpoint   string
	httpClient *http.Client
	breaker    *resilience.Breaker
	logger     *slog.Logger
}

// New creates an Analyzer for the sidecar at endpoint (e.g.
// "http://localhost:8000").
func New(endpoint string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		breaker:    resilience.NewBreaker(resilience.DefaultBreakerOpts),
		logger:     logger,
	}
}

// Analyze extracts features for the audio behind audioURL and applies
// the voice-detection rule. It never returns an error: all failures
// become Unavailable outcomes.
func (a *Analyzer) Analyze(ctx context.Context, audioURL string) Outcome {
	var feats Features
	err := a.breaker.Call(ctx, func(ctx context.Context) error {
		return a.fetchFeatures(ctx, audioURL, &feats)
	})
	if err != nil {
		a.logger.Debug("acoustic analysis unavailable", "audio_url", audioURL, "err", err)
		return Unavailable(err.Error())
	}
	return decide(feats)
}

func (a *Analyzer) fetchFeatures(ctx context.Context, audioURL string, out *Features) error {
	body, err := json.Marshal(analyzeRequest{AudioURL: audioURL})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar returned %d", resp.StatusCode)
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return fmt.Errorf("decode sidecar response: %w", err)
	}
	if ar.Err != "" {
		return fmt.Errorf("sidecar: %s", ar.Err)
	}
	if ar.Features == nil {
		return fmt.Errorf("sidecar returned no features")
	}
	*out = *ar.Features
	return nil
}

// decide applies the voice-detection rule: human speech sits in the
// 1-4 kHz spectral centroid band, with measurable zero-crossing
// activity and MFCC variance. Confidence scales with MFCC variance.
func decide(f Features) Outcome {
	hasVoice := f.SpectralCentroid > 1000 && f.SpectralCentroid < 4000 &&
		f.ZeroCrossingRate > 0.01 &&
		f.MFCCVariance > 10
	return Detected(hasVoice, f.MFCCVariance/50)
}
