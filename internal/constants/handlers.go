package constants

// File upload constants
const (
	// DefaultMaxFileSize is the default maximum accepted upload size in bytes (10MB)
	DefaultMaxFileSize = 10 << 20

	// UploadFormField is the multipart field carrying the analyzed image
	UploadFormField = "file"
)

// Explicit content heuristic constants
const (
	// SkinSampleSize is the side of the square the image is resized to before skin-tone sampling
	SkinSampleSize = 64

	// SkinRatioLimit is the fraction of skin-tone pixels above which an image is refused
	SkinRatioLimit = 0.7
)
