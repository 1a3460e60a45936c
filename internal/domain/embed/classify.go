package embed

import (
	"fmt"
	"regexp"
)

// MediaReference is the classification of a raw media URL. It is derived on
// every render and never persisted; only URL survives in storage.
type MediaReference struct {
	URL        string   `json:"url"`
	Platform   Platform `json:"platform"`
	Identifier string   `json:"identifier,omitempty"`
	RenderURL  string   `json:"render_url"`
}

const (
	youTubeEmbedFormat   = "https://www.youtube.com/embed/%s?rel=0"
	instagramEmbedFormat = "https://www.instagram.com/p/%s/embed"
	driveEmbedFormat     = "https://drive.google.com/file/d/%s/preview"
)

var (
	// Exactly eleven id characters; a twelfth one means the URL is not a video link we understand.
	youTubePattern    = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)
	instagramPattern  = regexp.MustCompile(`instagram\.com/(?:p|reel|reels)/([A-Za-z0-9_-]+)`)
	drivePattern      = regexp.MustCompile(`drive\.google\.com/file/d/([A-Za-z0-9_-]+)`)
	directFilePattern = regexp.MustCompile(`(?i)\.(?:mp4|webm|ogg|mov)(?:\?.*)?$`)
)

type rule struct {
	platform Platform
	match    func(raw string) (identifier string, ok bool)
	render   func(raw, identifier string) string
}

// rules is evaluated top to bottom and the first match wins.
var rules = []rule{
	{platform: PlatformYouTube, match: submatch(youTubePattern), render: endpoint(youTubeEmbedFormat)},
	{platform: PlatformInstagram, match: submatch(instagramPattern), render: endpoint(instagramEmbedFormat)},
	{platform: PlatformGoogleDrive, match: submatch(drivePattern), render: endpoint(driveEmbedFormat)},
	{platform: PlatformDirectFile, match: matches(directFilePattern), render: verbatim},
}

// Classify resolves raw into a MediaReference. It accepts any string and never
// fails: input no rule recognises comes back as PlatformUnknown with the raw
// text as RenderURL.
func Classify(raw string) MediaReference {
	for _, r := range rules {
		id, ok := r.match(raw)
		if !ok {
			continue
		}
		return MediaReference{
			URL:        raw,
			Platform:   r.platform,
			Identifier: id,
			RenderURL:  r.render(raw, id),
		}
	}
	return MediaReference{
		URL:       raw,
		Platform:  PlatformUnknown,
		RenderURL: raw,
	}
}

func submatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		m := re.FindStringSubmatch(raw)
		if len(m) < 2 || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
}

func matches(re *regexp.Regexp) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		return "", re.MatchString(raw)
	}
}

func endpoint(format string) func(string, string) string {
	return func(_ string, identifier string) string {
		return fmt.Sprintf(format, identifier)
	}
}

func verbatim(raw, _ string) string {
	return raw
}
