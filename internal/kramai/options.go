package kramai

// Image size, quality and style values accepted by the image API.
const (
	SizeSquare    = "1024x1024"
	SizeLandscape = "1792x1024"
	SizePortrait  = "1024x1792"

	QualityStandard = "standard"
	QualityHD       = "hd"

	StyleVivid   = "vivid"
	StyleNatural = "natural"
)

// ImageOptions parametrize one image generation call. Zero values mean
// the defaults: 1024x1024, standard, vivid.
type ImageOptions struct {
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

// ChatOptions parametrize the chat completion calls. Zero values mean
// the defaults: gpt-4o-mini, 500 tokens.
type ChatOptions struct {
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// ChatModels is the fixed set of accepted chat models.
var ChatModels = []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"}

// ImageSizes lists the accepted image sizes.
var ImageSizes = []string{SizeSquare, SizeLandscape, SizePortrait}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Size == "" {
		o.Size = SizeSquare
	}
	if o.Quality == "" {
		o.Quality = QualityStandard
	}
	if o.Style == "" {
		o.Style = StyleVivid
	}
	return o
}

func (o ChatOptions) withDefaults() ChatOptions {
	if o.Model == "" {
		o.Model = "gpt-4o-mini"
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 500
	}
	return o
}
