package embed

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const (
	DefaultTitle        = "Video"
	UnsupportedMessage  = "Unsupported video format"
	instagramMinHeight  = 540
	frameAllowedFeature = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"
)

var blocks = template.Must(template.New("embed").Parse(`
{{- define "video" -}}
<video class="embed embed-video" src="{{.Src}}" title="{{.Title}}" controls playsinline preload="metadata"></video>
{{- end -}}
{{- define "instagram" -}}
<iframe class="embed embed-instagram" src="{{.Src}}" title="{{.Title}}" scrolling="no" allow="encrypted-media" loading="lazy" style="border:none;min-height:{{.MinHeight}}px"></iframe>
{{- end -}}
{{- define "frame" -}}
<iframe class="embed embed-frame" src="{{.Src}}" title="{{.Title}}" allow="{{.Allow}}" allowfullscreen loading="lazy"></iframe>
{{- end -}}
{{- define "unsupported" -}}
<div class="embed embed-unsupported"><p>{{.Message}}</p><p class="embed-url">{{.Src}}</p></div>
{{- end -}}
`))

type blockData struct {
	Src       string
	Title     string
	Allow     string
	Message   string
	MinHeight int
}

// Render turns a classified reference into the markup that displays it.
// Every Platform has its own branch; an unlisted value is a programming error.
func Render(ref MediaReference, title string) template.HTML {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	data := blockData{Src: ref.RenderURL, Title: title}
	var name string
	switch ref.Platform {
	case PlatformDirectFile:
		name = "video"
	case PlatformInstagram:
		name = "instagram"
		data.MinHeight = instagramMinHeight
	case PlatformYouTube, PlatformGoogleDrive:
		name = "frame"
		data.Allow = frameAllowedFeature
	case PlatformUnknown:
		name = "unsupported"
		data.Src = ref.URL
		data.Message = UnsupportedMessage
	default:
		panic(fmt.Sprintf("embed: unhandled platform %q", ref.Platform))
	}

	var buf bytes.Buffer
	if err := blocks.ExecuteTemplate(&buf, name, data); err != nil {
		// Only reachable on a broken template; fall back to the escaped raw URL.
		return template.HTML(`<div class="embed embed-unsupported"><p>` + UnsupportedMessage + `</p><p class="embed-url">` +
			template.HTMLEscapeString(ref.URL) + `</p></div>`)
	}
	return template.HTML(buf.String())
}

// RenderURL classifies raw and renders it in one step.
func RenderURL(raw, title string) template.HTML {
	return Render(Classify(raw), title)
}
