package scraper

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The watch page embeds the video sources as JSON-escaped strings inside
// inline scripts. HD keys are checked before SD so the best quality wins.
var sourcePatterns = []struct {
	re      *regexp.Regexp
	quality string
}{
	{regexp.MustCompile(`"playable_url_quality_hd"\s*:\s*"([^"]+)"`), "hd"},
	{regexp.MustCompile(`"browser_native_hd_url"\s*:\s*"([^"]+)"`), "hd"},
	{regexp.MustCompile(`hd_src\s*:\s*"([^"]+)"`), "hd"},
	{regexp.MustCompile(`"playable_url"\s*:\s*"([^"]+)"`), "sd"},
	{regexp.MustCompile(`"browser_native_sd_url"\s*:\s*"([^"]+)"`), "sd"},
	{regexp.MustCompile(`sd_src\s*:\s*"([^"]+)"`), "sd"},
}

// extractPlayableURL scans page markup for an embedded video source and
// returns it with its quality label.
func extractPlayableURL(html string) (url, quality string, ok bool) {
	for _, p := range sourcePatterns {
		m := p.re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		candidate := unescapeSource(m[1])
		if candidate == "" {
			continue
		}
		return candidate, p.quality, true
	}
	return "", "", false
}

// unescapeSource decodes the JSON string escaping (%, \/) the page
// applies to embedded URLs.
func unescapeSource(s string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &decoded); err != nil {
		decoded = strings.ReplaceAll(s, `\/`, `/`)
	}
	if !strings.HasPrefix(decoded, "http") {
		return ""
	}
	return decoded
}
