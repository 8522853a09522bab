// Package classify labels videos as containing spoken narration or
// not. A cheap keyword stage always runs; an optional acoustic stage
// can override it when it produces a verdict. The keyword lists mix
// content-type and voice-presence signals on purpose: they are plain
// data and can be swapped per domain without code changes.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/channelscope/channelscope/engine/acoustic"
)

// Classification methods.
const (
	MethodKeyword  = "keyword"
	MethodAcoustic = "acoustic"
)

// Keyword-stage confidence levels.
const (
	confidenceNegative = 0.9 // explicit no-voice framing
	confidencePositive = 0.7 // positive term matched
	confidenceNoSignal = 0.3 // neither list matched
)

// Verdict is the classifier output. HasVoice is always defined;
// Confidence is in [0,1]; Method names the stage that produced it.
type Verdict struct {
	HasVoice   bool    `json:"has_voice"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// DefaultNegative lists terms implying no spoken content. A negative
// match dominates any positive term: explicit "no voice" framing is a
// stronger signal than ambiguous positives.
var DefaultNegative = []string{
	"instrumental", "no voice", "no talking", "ambient",
	"music only", "無人声", "无人声", "纯音乐", "无配音",
}

// DefaultPositive lists terms implying spoken content.
var DefaultPositive = []string{
	"voiceover", "voice over", "narration", "commentary",
	"guided", "tutorial", "meditation", "talk",
	"配音", "解说", "引导", "讲解",
}

// AcousticAnalyzer produces an acoustic voice verdict for an audio
// source, or an Unavailable outcome.
type AcousticAnalyzer interface {
	Analyze(ctx context.Context, audioURL string) acoustic.Outcome
}

// Options configures a Classifier. Zero values fall back to the default
// keyword lists and no acoustic stage.
type Options struct {
	Negative []string
	Positive []string
	Acoustic AcousticAnalyzer
	Logger   *slog.Logger
}

// Classifier is the two-stage narration classifier.
type Classifier struct {
	negative []string
	positive []string
	acoustic AcousticAnalyzer
	logger   *slog.Logger
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	c := &Classifier{
		negative: opts.Negative,
		positive: opts.Positive,
		acoustic: opts.Acoustic,
		logger:   opts.Logger,
	}
	if c.negative == nil {
		c.negative = DefaultNegative
	}
	if c.positive == nil {
		c.positive = DefaultPositive
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Classify labels one video. The keyword stage is a pure function of
// title and description. The acoustic stage runs only when useAcoustic
// is set, an audio source is given, no negative term short-circuited,
// and an analyzer is configured; its verdict, when available, replaces
// the keyword verdict entirely. An unavailable acoustic outcome leaves
// the keyword verdict untouched and is logged only.
func (c *Classifier) Classify(ctx context.Context, title, description, audioURL string, useAcoustic bool) Verdict {
	text := strings.ToLower(title + " " + description)

	if term := matchAny(text, c.negative); term != "" {
		return Verdict{HasVoice: false, Confidence: confidenceNegative, Method: MethodKeyword}
	}

	verdict := Verdict{Confidence: confidenceNoSignal, Method: MethodKeyword}
	if term := matchAny(text, c.positive); term != "" {
		verdict.HasVoice = true
		verdict.Confidence = confidencePositive
	}

	if !useAcoustic || audioURL == "" || c.acoustic == nil {
		return verdict
	}

	out := c.acoustic.Analyze(ctx, audioURL)
	if !out.Available() {
		c.logger.Debug("acoustic stage unavailable, keeping keyword verdict",
			"audio_url", audioURL, "reason", out.Reason)
		return verdict
	}
	return Verdict{HasVoice: out.HasVoice, Confidence: out.Confidence, Method: MethodAcoustic}
}

// matchAny returns the first term contained in text, or "".
func matchAny(text string, terms []string) string {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return term
		}
	}
	return ""
}
