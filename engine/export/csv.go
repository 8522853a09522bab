// Package export renders analysis reports for download. CSV output is
// UTF-8 with a BOM so spreadsheet tools pick the encoding up, which
// matters for the CJK text common in titles and timestamps here.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/channelscope/channelscope/engine/analyzer"
	"github.com/channelscope/channelscope/pkg/fn"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns is the CSV header, in output order.
var Columns = []string{
	"title", "link", "view_count", "duration",
	"published_date", "description", "hashtags", "is_voiceover",
}

// WriteCSV writes the videos as CSV to w, BOM and header first. Rows
// come out in slice order; sort before calling if an ordering matters.
func WriteCSV(w io.Writer, videos []analyzer.AnalyzedVideo) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range videos {
		if err := cw.Write(row(v)); err != nil {
			return fmt.Errorf("write row %s: %w", v.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(v analyzer.AnalyzedVideo) []string {
	return []string{
		v.Title,
		v.URL,
		strconv.FormatInt(v.ViewCount, 10),
		v.Duration,
		v.PublishedLocal,
		v.Description,
		strings.Join(v.Hashtags, ", "),
		strconv.FormatBool(v.Narration.HasVoice),
	}
}

// Filename builds a download name from the channel title and a
// timestamp, e.g. "Calm_Channel_videos_20240115_103000.csv".
func Filename(channelTitle string, now time.Time) string {
	safe := fn.Map(strings.Fields(channelTitle), sanitizeWord)
	title := strings.Join(safe, "_")
	if title == "" {
		title = "channel"
	}
	return fmt.Sprintf("%s_videos_%s.csv", title, now.Format("20060102_150405"))
}

// sanitizeWord strips characters that are unsafe in filenames.
func sanitizeWord(w string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, w)
}
