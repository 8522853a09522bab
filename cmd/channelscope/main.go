// Command channelscope analyzes a YouTube channel: it resolves the
// channel from a name, handle, or URL, collects recent uploads, labels
// each for spoken narration, and prints a table or writes a CSV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/channelscope/channelscope/engine/acoustic"
	"github.com/channelscope/channelscope/engine/analyzer"
	"github.com/channelscope/channelscope/engine/classify"
	"github.com/channelscope/channelscope/engine/export"
	"github.com/channelscope/channelscope/engine/youtube"
	"github.com/channelscope/channelscope/pkg/natsutil"
)

const publishSubject = "channelscope.videos"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		channel     = flag.String("channel", "", "channel name, @handle, URL, or UC... id")
		apiKey      = flag.String("api-key", os.Getenv("YOUTUBE_API_KEY"), "YouTube Data API v3 key")
		maxVideos   = flag.Int("max", analyzer.DefaultMaxVideos, "max videos to analyze")
		tz          = flag.String("tz", "UTC", "timezone code for timestamps (UTC, PT, ET, GMT, CST, JST)")
		sortKey     = flag.String("sort", "", "table order: views_desc, views_asc, date_desc, date_asc, voice_first, voice_last")
		useAcoustic = flag.Bool("acoustic", false, "use the acoustic sidecar for voice detection")
		acousticURL = flag.String("acoustic-url", envOr("ACOUSTIC_URL", "http://localhost:8000"), "acoustic sidecar endpoint")
		csvPath     = flag.String("o", "", "write results as CSV to this path")
		natsURL     = flag.String("publish", "", "publish annotated videos to this NATS server")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *channel == "" {
		fmt.Fprintln(os.Stderr, "error: -channel is required")
		flag.Usage()
		os.Exit(2)
	}
	if *sortKey != "" && !analyzer.ValidSortKey(*sortKey) {
		fmt.Fprintf(os.Stderr, "error: unknown sort key %q\n", *sortKey)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, runOpts{
		channel:     youtube.ExtractHint(*channel),
		apiKey:      *apiKey,
		maxVideos:   *maxVideos,
		tz:          *tz,
		sortKey:     *sortKey,
		useAcoustic: *useAcoustic,
		acousticURL: *acousticURL,
		csvPath:     *csvPath,
		natsURL:     *natsURL,
	}, logger); err != nil {
		if errors.Is(err, youtube.ErrChannelNotFound) {
			fmt.Fprintf(os.Stderr, "channel %q not found; try the exact @handle or channel URL\n", *channel)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type runOpts struct {
	channel     string
	apiKey      string
	maxVideos   int
	tz          string
	sortKey     string
	useAcoustic bool
	acousticURL string
	csvPath     string
	natsURL     string
}

func run(ctx context.Context, opts runOpts, logger *slog.Logger) error {
	client, err := youtube.New(ctx, opts.apiKey, logger)
	if err != nil {
		return err
	}

	var sidecar classify.AcousticAnalyzer
	if opts.useAcoustic {
		sidecar = acoustic.New(opts.acousticURL, logger)
	}
	classifier := classify.New(classify.Options{Acoustic: sidecar, Logger: logger})

	svc := analyzer.NewService(client, classifier, logger, nil)
	report, err := svc.Run(ctx, analyzer.Request{
		Channel:     opts.channel,
		MaxVideos:   opts.maxVideos,
		Timezone:    opts.tz,
		UseAcoustic: opts.useAcoustic,
	})
	if err != nil {
		return err
	}

	videos := analyzer.SortVideos(report.Videos, opts.sortKey)

	printHeader(report)
	printTable(videos)

	if opts.csvPath != "" {
		if err := writeCSV(opts.csvPath, videos); err != nil {
			return err
		}
		fmt.Printf("\nCSV written to %s\n", opts.csvPath)
	}

	if opts.natsURL != "" {
		if err := publish(ctx, opts.natsURL, videos, logger); err != nil {
			return err
		}
	}
	return nil
}

func printHeader(report *analyzer.Report) {
	ch := report.Channel
	fmt.Printf("%s", ch.Title)
	if ch.CustomURL != "" {
		fmt.Printf(" (%s)", ch.CustomURL)
	}
	fmt.Printf("\n%d subscribers, %d videos, %d total views\n\n",
		ch.SubscriberCount, ch.VideoCount, ch.ViewCount)
}

func printTable(videos []analyzer.AnalyzedVideo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tVIEWS\tDURATION\tPUBLISHED\tVOICE\tCONF\tMETHOD")
	for _, v := range videos {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%v\t%.1f\t%s\n",
			truncate(v.Title, 48), v.ViewCount, v.Duration, v.PublishedLocal,
			v.Narration.HasVoice, v.Narration.Confidence, v.Narration.Method)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func writeCSV(path string, videos []analyzer.AnalyzedVideo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, videos); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func publish(ctx context.Context, url string, videos []analyzer.AnalyzedVideo, logger *slog.Logger) error {
	nc, err := nats.Connect(url, nats.Timeout(5*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	defer nc.Drain()

	for _, v := range videos {
		if err := natsutil.Publish(ctx, nc, publishSubject, v); err != nil {
			return fmt.Errorf("publish %s: %w", v.ID, err)
		}
	}
	logger.Info("videos published", "subject", publishSubject, "count", len(videos))
	return nil
}
