// Package analyzer ties channel resolution, video collection, and
// narration classification into one run. It is the piece both the CLI
// and the API server call into.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/channelscope/channelscope/engine/classify"
	"github.com/channelscope/channelscope/engine/youtube"
	"github.com/channelscope/channelscope/pkg/fn"
	"github.com/channelscope/channelscope/pkg/metrics"
)

// DefaultMaxVideos bounds a run when the request does not say how many
// videos to pull.
const DefaultMaxVideos = 100

// ChannelSource resolves channels and collects their uploads. Satisfied
// by *youtube.Client.
type ChannelSource interface {
	Resolve(ctx context.Context, hint string) (youtube.ChannelProfile, error)
	Collect(ctx context.Context, profile youtube.ChannelProfile, opts youtube.CollectOptions) ([]youtube.VideoRecord, error)
}

// NarrationClassifier labels one video. Satisfied by *classify.Classifier.
type NarrationClassifier interface {
	Classify(ctx context.Context, title, description, audioURL string, useAcoustic bool) classify.Verdict
}

// Request describes one analysis run.
type Request struct {
	Channel     string `json:"channel"`
	MaxVideos   int    `json:"max_videos"`
	Timezone    string `json:"timezone"`
	UseAcoustic bool   `json:"use_acoustic"`
}

// AnalyzedVideo is a collected video plus its narration verdict.
type AnalyzedVideo struct {
	youtube.VideoRecord
	Narration classify.Verdict `json:"narration"`
}

// Report is the output of one run.
type Report struct {
	Channel     youtube.ChannelProfile `json:"channel"`
	Timezone    string                 `json:"timezone"`
	Videos      []AnalyzedVideo        `json:"videos"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Service runs analyses.
type Service struct {
	source     ChannelSource
	classifier NarrationClassifier
	logger     *slog.Logger

	runsTotal       *metrics.Counter
	runsFailed      *metrics.Counter
	runSeconds      *metrics.Histogram
	classifiedTotal func(method string) *metrics.Counter
}

// NewService creates a Service. reg may be nil, in which case metrics
// go to a private throwaway registry.
func NewService(source ChannelSource, classifier NarrationClassifier, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	return &Service{
		source:     source,
		classifier: classifier,
		logger:     logger,
		runsTotal:  reg.Counter("analyzer_runs_total", "completed analysis runs"),
		runsFailed: reg.Counter("analyzer_runs_failed_total", "failed analysis runs"),
		runSeconds: reg.Histogram("analyzer_run_seconds", "analysis run duration", nil),
		classifiedTotal: func(method string) *metrics.Counter {
			return reg.Counter(metrics.WithLabels("analyzer_classified_total", "method", method),
				"videos classified per method")
		},
	}
}

// Run executes one analysis: resolve the channel, collect its uploads,
// classify each one. Videos are classified sequentially; collection
// order (newest first) is preserved in the report.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()

	tz, err := TimezoneByCode(req.Timezone)
	if err != nil {
		return nil, err
	}
	loc, err := tz.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", tz.IANA, err)
	}

	maxVideos := req.MaxVideos
	if maxVideos <= 0 {
		maxVideos = DefaultMaxVideos
	}

	resolve := fn.TracedStage("analyzer.resolve",
		func(ctx context.Context, hint string) fn.Result[youtube.ChannelProfile] {
			return fn.FromPair(s.source.Resolve(ctx, hint))
		})
	collect := fn.TracedStage("analyzer.collect",
		func(ctx context.Context, profile youtube.ChannelProfile) fn.Result[[]youtube.VideoRecord] {
			if profile.VideoCount > 0 && int64(maxVideos) > profile.VideoCount {
				maxVideos = int(profile.VideoCount)
			}
			return fn.FromPair(s.source.Collect(ctx, profile, youtube.CollectOptions{
				MaxVideos: maxVideos,
				Location:  loc,
				ZoneAbbr:  tz.Abbr,
			}))
		})

	profile, err := resolve(ctx, req.Channel).Unwrap()
	if err != nil {
		s.runsFailed.Inc()
		return nil, err
	}
	s.logger.Info("channel resolved",
		"channel_id", profile.ID, "title", profile.Title, "video_count", profile.VideoCount)

	records, err := collect(ctx, profile).Unwrap()
	if err != nil {
		s.runsFailed.Inc()
		return nil, err
	}
	s.logger.Info("videos collected", "channel_id", profile.ID, "count", len(records))

	videos := make([]AnalyzedVideo, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.runsFailed.Inc()
			return nil, err
		}
		verdict := s.classifier.Classify(ctx, rec.Title, rec.Description, rec.URL, req.UseAcoustic)
		s.classifiedTotal(verdict.Method).Inc()
		videos = append(videos, AnalyzedVideo{VideoRecord: rec, Narration: verdict})
	}

	s.runsTotal.Inc()
	s.runSeconds.Since(started)

	return &Report{
		Channel:     profile,
		Timezone:    tz.Code,
		Videos:      videos,
		StartedAt:   started.UTC(),
		CompletedAt: time.Now().UTC(),
	}, nil
}
