package classify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/channelscope/channelscope/engine/acoustic"
)

// stubAnalyzer returns a canned outcome and records invocations.
type stubAnalyzer struct {
	out   acoustic.Outcome
	calls int
}

func (s *stubAnalyzer) Analyze(context.Context, string) acoustic.Outcome {
	s.calls++
	return s.out
}

func testClassifier(a AcousticAnalyzer) *Classifier {
	return New(Options{
		Acoustic: a,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNegativeShortCircuit(t *testing.T) {
	c := testClassifier(nil)
	v := c.Classify(context.Background(), "Ambient Instrumental", "no voice, music only", "", false)
	if v.HasVoice {
		t.Fatal("expected no voice")
	}
	if v.Confidence != 0.9 || v.Method != MethodKeyword {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestPositiveKeyword(t *testing.T) {
	c := testClassifier(nil)
	v := c.Classify(context.Background(), "Guided Meditation Tutorial", "a calm talk", "", false)
	if !v.HasVoice || v.Confidence != 0.7 || v.Method != MethodKeyword {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestNoSignal(t *testing.T) {
	c := testClassifier(nil)
	v := c.Classify(context.Background(), "Random Clip", "just a clip", "", false)
	if v.HasVoice || v.Confidence != 0.3 || v.Method != MethodKeyword {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestNegativeDominatesPositive(t *testing.T) {
	c := testClassifier(nil)
	v := c.Classify(context.Background(), "Guided Meditation", "instrumental version, no voice", "", false)
	if v.HasVoice || v.Confidence != 0.9 {
		t.Fatalf("negative term should dominate: %+v", v)
	}
}

func TestAcousticOverridesKeyword(t *testing.T) {
	stub := &stubAnalyzer{out: acoustic.Detected(true, 0.8)}
	c := testClassifier(stub)

	v := c.Classify(context.Background(), "Random Clip", "just a clip", "https://example.com/a", true)
	if !v.HasVoice || v.Confidence != 0.8 || v.Method != MethodAcoustic {
		t.Fatalf("acoustic verdict should override: %+v", v)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one acoustic call, got %d", stub.calls)
	}
}

func TestAcousticUnavailableFallsBack(t *testing.T) {
	stub := &stubAnalyzer{out: acoustic.Unavailable("download failed")}
	c := testClassifier(stub)

	v := c.Classify(context.Background(), "Guided Meditation Tutorial", "a calm talk", "https://example.com/a", true)
	if !v.HasVoice || v.Confidence != 0.7 || v.Method != MethodKeyword {
		t.Fatalf("expected untouched keyword verdict: %+v", v)
	}
}

func TestAcousticSkippedOnNegativeShortCircuit(t *testing.T) {
	stub := &stubAnalyzer{out: acoustic.Detected(true, 0.9)}
	c := testClassifier(stub)

	v := c.Classify(context.Background(), "Pure Instrumental", "no voice", "https://example.com/a", true)
	if v.HasVoice || v.Method != MethodKeyword {
		t.Fatalf("negative short-circuit must skip acoustic stage: %+v", v)
	}
	if stub.calls != 0 {
		t.Fatalf("acoustic stage should not run, got %d calls", stub.calls)
	}
}

func TestAcousticSkippedWithoutAudioSource(t *testing.T) {
	stub := &stubAnalyzer{out: acoustic.Detected(true, 0.9)}
	c := testClassifier(stub)

	c.Classify(context.Background(), "Random Clip", "clip", "", true)
	if stub.calls != 0 {
		t.Fatal("no audio source means no acoustic call")
	}
}

func TestClassifyIsIdempotentWithoutAcoustic(t *testing.T) {
	c := testClassifier(nil)
	a := c.Classify(context.Background(), "Guided Meditation", "calm", "", false)
	b := c.Classify(context.Background(), "Guided Meditation", "calm", "", false)
	if a != b {
		t.Fatalf("verdicts differ: %+v vs %+v", a, b)
	}
}

func TestCustomLists(t *testing.T) {
	c := New(Options{
		Negative: []string{"field recording"},
		Positive: []string{"podcast"},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if v := c.Classify(context.Background(), "Forest Field Recording", "", "", false); v.HasVoice {
		t.Fatalf("custom negative list ignored: %+v", v)
	}
	if v := c.Classify(context.Background(), "My Podcast Ep 4", "", "", false); !v.HasVoice {
		t.Fatalf("custom positive list ignored: %+v", v)
	}
	// Default terms no longer apply.
	if v := c.Classify(context.Background(), "Guided Meditation", "", "", false); v.HasVoice {
		t.Fatalf("default lists should be replaced: %+v", v)
	}
}
