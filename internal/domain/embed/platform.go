package embed

// Platform is the closed set of media hosts a pasted URL can resolve to.
type Platform string

const (
	PlatformYouTube     Platform = "youtube"
	PlatformInstagram   Platform = "instagram"
	PlatformGoogleDrive Platform = "google_drive"
	PlatformDirectFile  Platform = "direct_file"
	PlatformUnknown     Platform = "unknown"
)

// Platforms lists every variant in classification priority order.
func Platforms() []Platform {
	return []Platform{
		PlatformYouTube,
		PlatformInstagram,
		PlatformGoogleDrive,
		PlatformDirectFile,
		PlatformUnknown,
	}
}

// Label is the human readable name shown in the admin content list.
func (p Platform) Label() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformGoogleDrive:
		return "Google Drive"
	case PlatformDirectFile:
		return "Direct file"
	case PlatformUnknown:
		return "Unknown"
	}
	return "Unknown"
}

// IsFrame reports whether media of this platform is displayed through an iframe.
func (p Platform) IsFrame() bool {
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformGoogleDrive:
		return true
	case PlatformDirectFile, PlatformUnknown:
		return false
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}
