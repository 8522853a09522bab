package analyzer

import "sort"

// Sort keys accepted by SortVideos.
const (
	SortViewsDesc  = "views_desc"
	SortViewsAsc   = "views_asc"
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortVoiceLast  = "voice_last"
	SortVoiceFirst = "voice_first"
)

// ValidSortKey reports whether key names a supported ordering.
func ValidSortKey(key string) bool {
	switch key {
	case SortViewsDesc, SortViewsAsc, SortDateDesc, SortDateAsc,
		SortVoiceFirst, SortVoiceLast:
		return true
	}
	return false
}

// SortVideos returns a sorted copy; the input is never reordered. An
// unknown key returns the copy in collection order. Sorting is stable,
// so ties keep the upload-recency order the collector produced.
func SortVideos(videos []AnalyzedVideo, key string) []AnalyzedVideo {
	out := make([]AnalyzedVideo, len(videos))
	copy(out, videos)

	var less func(a, b AnalyzedVideo) bool
	switch key {
	case SortViewsDesc:
		less = func(a, b AnalyzedVideo) bool { return a.ViewCount > b.ViewCount }
	case SortViewsAsc:
		less = func(a, b AnalyzedVideo) bool { return a.ViewCount < b.ViewCount }
	case SortDateDesc:
		less = func(a, b AnalyzedVideo) bool { return a.PublishedAt.After(b.PublishedAt) }
	case SortDateAsc:
		less = func(a, b AnalyzedVideo) bool { return a.PublishedAt.Before(b.PublishedAt) }
	case SortVoiceFirst:
		less = func(a, b AnalyzedVideo) bool { return a.Narration.HasVoice && !b.Narration.HasVoice }
	case SortVoiceLast:
		less = func(a, b AnalyzedVideo) bool { return !a.Narration.HasVoice && b.Narration.HasVoice }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
