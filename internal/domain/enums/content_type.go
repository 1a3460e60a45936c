package enums

type ContentType string

const (
	ContentTypeHero      ContentType = "hero"
	ContentTypeShortForm ContentType = "short_form"
	ContentTypeLongForm  ContentType = "long_form"
)

func ContentTypes() []ContentType {
	return []ContentType{ContentTypeHero, ContentTypeShortForm, ContentTypeLongForm}
}

func ParseContentType(raw string) (ContentType, bool) {
	switch ContentType(raw) {
	case ContentTypeHero, ContentTypeShortForm, ContentTypeLongForm:
		return ContentType(raw), true
	default:
		return "", false
	}
}
