package youtube

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// channelURLPatterns extract the channel identifier from the URL forms
// users paste in.
var channelURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/channel/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`youtube\.com/c/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`youtube\.com/@([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`youtube\.com/user/([a-zA-Z0-9_-]+)`),
}

var (
	durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
	hashtagPattern  = regexp.MustCompile(`#\w+`)
	canonicalIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)
)

// weekdayNames is indexed by ISO weekday, Monday = 0.
var weekdayNames = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// ExtractHint reduces a pasted channel link to the bare identifier
// (canonical ID, handle, or username). Inputs that are not URLs pass
// through unchanged.
func ExtractHint(input string) string {
	input = strings.TrimSpace(input)
	for _, p := range channelURLPatterns {
		if m := p.FindStringSubmatch(input); m != nil {
			return m[1]
		}
	}
	if strings.Contains(input, "@") {
		parts := strings.Split(input, "@")
		return parts[len(parts)-1]
	}
	if i := strings.LastIndex(input, "/"); i != -1 {
		return input[i+1:]
	}
	return input
}

// IsCanonicalID reports whether s has the platform's canonical channel
// ID shape: "UC" prefix, 24 characters.
func IsCanonicalID(s string) bool {
	return canonicalIDPattern.MatchString(s)
}

// ParseDuration converts an ISO-8601 duration code like "PT1H2M3S" to
// seconds. Codes with no recognizable components parse to zero.
func ParseDuration(code string) int {
	m := durationPattern.FindStringSubmatch(code)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + s
}

// FormatHMS renders seconds as zero-padded HH:MM:SS.
func FormatHMS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// ExtractHashtags returns the #-prefixed word tokens of a description in
// first-occurrence order. Repeats are kept.
func ExtractHashtags(description string) []string {
	return hashtagPattern.FindAllString(description, -1)
}

// FormatPublished renders a UTC publish time in the given zone as
// "YYYY-MM-DD HH:MM <abbr> (<weekday>)" with a localized weekday label.
func FormatPublished(t time.Time, loc *time.Location, abbr string) string {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	wd := weekdayNames[(int(lt.Weekday())+6)%7]
	return fmt.Sprintf("%s %s (%s)", lt.Format("2006-01-02 15:04"), abbr, wd)
}

// Excerpt truncates s to at most n runes.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
