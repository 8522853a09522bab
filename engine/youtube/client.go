// Package youtube resolves channels and collects upload metadata from
// the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/channelscope/channelscope/pkg/fn"
)

const (
	// searchWidth bounds how many search candidates are verified.
	searchWidth = 5
	// pageCap is the Data API maximum page size for playlist items.
	pageCap = 50
	// excerptLen bounds the stored description excerpt, in runes.
	excerptLen = 500
)

// Client wraps the Data API service with pacing and logging. All calls
// are synchronous; one invocation of Resolve or Collect never runs
// requests concurrently.
type Client struct {
	svc     *ytapi.Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client authenticated by apiKey. Extra options are
// appended, which lets tests point the service at a local server.
func New(ctx context.Context, apiKey string, logger *slog.Logger, extra ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.ClientOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	opts = append(opts, extra...)

	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	return &Client{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		logger:  logger,
	}, nil
}

// apiErr maps Data API failures onto the package sentinels.
func apiErr(op string, err error) error {
	var g *googleapi.Error
	if errors.As(err, &g) && (g.Code == http.StatusForbidden || g.Code == http.StatusTooManyRequests) {
		return fmt.Errorf("%s: %w", op, ErrQuotaExhausted)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Resolve finds the channel best matching hint. Hint may be a full
// channel URL, a canonical ID, a handle, or a free-text query.
//
// Canonical IDs are looked up directly. Anything else goes through a
// bounded channel search; candidates are verified in rank order with a
// bidirectional case-insensitive substring test against their custom
// URL, and the first qualifying candidate wins. If none qualifies the
// top search result is returned. All transport and auth failures are
// logged and reported uniformly as ErrChannelNotFound.
func (c *Client) Resolve(ctx context.Context, hint string) (ChannelProfile, error) {
	hint = ExtractHint(hint)
	if hint == "" {
		return ChannelProfile{}, ErrChannelNotFound
	}

	if IsCanonicalID(hint) {
		profile, err := c.channelByID(ctx, hint)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, ErrChannelNotFound) {
			c.logger.Warn("channel lookup failed", "hint", hint, "err", err)
			return ChannelProfile{}, ErrChannelNotFound
		}
		// Canonical-shaped but unknown: fall through to search.
	}

	candidates, err := c.searchChannels(ctx, hint, searchWidth)
	if err != nil {
		c.logger.Warn("channel search failed", "hint", hint, "err", err)
		return ChannelProfile{}, ErrChannelNotFound
	}
	if len(candidates) == 0 {
		return ChannelProfile{}, ErrChannelNotFound
	}

	lowered := strings.ToLower(hint)
	var top ChannelProfile
	for i, id := range candidates {
		profile, err := c.channelByID(ctx, id)
		if err != nil {
			c.logger.Warn("candidate lookup failed", "channel_id", id, "err", err)
			return ChannelProfile{}, ErrChannelNotFound
		}
		if i == 0 {
			top = profile
		}
		custom := strings.ToLower(profile.CustomURL)
		if strings.Contains(custom, lowered) || strings.Contains(lowered, custom) {
			return profile, nil
		}
	}

	// Nothing passed verification: degrade to the top-ranked result.
	c.logger.Info("no candidate matched custom URL, using top search result",
		"hint", hint, "channel_id", top.ID)
	return top, nil
}

// channelByID fetches a full profile. Returns ErrChannelNotFound when
// the API reports no such channel.
func (c *Client) channelByID(ctx context.Context, id string) (ChannelProfile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ChannelProfile{}, err
	}
	resp, err := c.svc.Channels.
		List([]string{"snippet", "statistics", "contentDetails"}).
		Id(id).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return ChannelProfile{}, apiErr("channels.list", err)
	}
	if len(resp.Items) == 0 {
		return ChannelProfile{}, ErrChannelNotFound
	}

	ch := resp.Items[0]
	profile := ChannelProfile{ID: ch.Id}
	if ch.Snippet != nil {
		profile.Title = ch.Snippet.Title
		profile.CustomURL = ch.Snippet.CustomUrl
	}
	if ch.Statistics != nil {
		profile.VideoCount = int64(ch.Statistics.VideoCount)
		profile.SubscriberCount = int64(ch.Statistics.SubscriberCount)
		profile.ViewCount = int64(ch.Statistics.ViewCount)
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		profile.UploadsPlaylistID = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	return profile, nil
}

// searchChannels returns up to max candidate channel IDs in relevance
// order.
func (c *Client) searchChannels(ctx context.Context, query string, max int64) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.svc.Search.
		List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiErr("search.list", err)
	}

	var ids []string
	for _, item := range resp.Items {
		if item.Snippet != nil && item.Snippet.ChannelId != "" {
			ids = append(ids, item.Snippet.ChannelId)
		}
	}
	return ids, nil
}

// CollectOptions configures one collection pass.
type CollectOptions struct {
	// MaxVideos bounds the collected sequence. Zero collects nothing.
	MaxVideos int
	// Location and ZoneAbbr control the localized publish stamp.
	// Nil Location means UTC.
	Location *time.Location
	ZoneAbbr string
}

// Collect pages through the channel's uploads playlist and returns up
// to opts.MaxVideos records in the platform's native upload order.
// Every item is enriched from a per-page videos.list batch call. Any
// upstream failure aborts the whole collection; no partial result is
// returned.
func (c *Client) Collect(ctx context.Context, profile ChannelProfile, opts CollectOptions) ([]VideoRecord, error) {
	if opts.MaxVideos <= 0 {
		return nil, nil
	}
	abbr := opts.ZoneAbbr
	if abbr == "" {
		abbr = "UTC"
	}

	uploads := profile.UploadsPlaylistID
	if uploads == "" {
		refreshed, err := c.channelByID(ctx, profile.ID)
		if err != nil {
			return nil, fmt.Errorf("collect: resolve uploads playlist: %w", err)
		}
		uploads = refreshed.UploadsPlaylistID
	}

	videos := make([]VideoRecord, 0, opts.MaxVideos)
	seen := make(map[string]bool, opts.MaxVideos)
	pageToken := ""

	for len(videos) < opts.MaxVideos {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		pageSize := min(pageCap, opts.MaxVideos-len(videos))
		call := c.svc.PlaylistItems.
			List([]string{"snippet", "contentDetails"}).
			PlaylistId(uploads).
			MaxResults(int64(pageSize)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, apiErr("collect: playlistItems.list", err)
		}
		if len(page.Items) == 0 {
			break
		}

		ids := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			if id := item.ContentDetails.VideoId; !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}

		records, err := c.videoDetails(ctx, ids, opts.Location, abbr)
		if err != nil {
			return nil, err
		}
		videos = append(videos, records...)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if len(videos) > opts.MaxVideos {
		videos = videos[:opts.MaxVideos]
	}
	return videos, nil
}

// videoDetails batch-fetches full details for ids, preserving their
// order.
func (c *Client) videoDetails(ctx context.Context, ids []string, loc *time.Location, abbr string) ([]VideoRecord, error) {
	byID := make(map[string]VideoRecord, len(ids))
	for _, batch := range fn.Chunk(ids, pageCap) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.svc.Videos.
			List([]string{"snippet", "statistics", "contentDetails"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, apiErr("collect: videos.list", err)
		}
		for _, v := range resp.Items {
			byID[v.Id] = newRecord(v, loc, abbr)
		}
	}

	records := make([]VideoRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// newRecord derives the display fields for one API video item.
func newRecord(v *ytapi.Video, loc *time.Location, abbr string) VideoRecord {
	rec := VideoRecord{
		ID:  v.Id,
		URL: "https://www.youtube.com/watch?v=" + v.Id,
	}
	if v.Snippet != nil {
		rec.Title = v.Snippet.Title
		rec.Description = Excerpt(v.Snippet.Description, excerptLen)
		rec.Hashtags = ExtractHashtags(v.Snippet.Description)
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			rec.PublishedAt = t.UTC()
			rec.PublishedLocal = FormatPublished(rec.PublishedAt, loc, abbr)
		}
	}
	if v.Statistics != nil {
		rec.ViewCount = int64(v.Statistics.ViewCount)
	}
	if v.ContentDetails != nil {
		rec.DurationSeconds = ParseDuration(v.ContentDetails.Duration)
		rec.Duration = FormatHMS(rec.DurationSeconds)
	}
	return rec
}
