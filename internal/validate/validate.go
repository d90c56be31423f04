package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/krampattern/kram-api/internal/kramai"
)

const (
	// MaxPromptLen caps the user prompt for generation requests.
	MaxPromptLen = 900
	// MaxSearchLen caps the gallery free-text search term.
	MaxSearchLen = 1000
	// MaxTags caps the number of tag references per request.
	MaxTags = 10

	MinMaxTokens = 50
	MaxMaxTokens = 2000
)

var uuidV4 = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// Result accumulates all violations instead of failing fast.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (r *Result) add(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// IsUUID reports whether s has UUID v4 shape.
func IsUUID(s string) bool {
	return uuidV4.MatchString(s)
}

// GenerateRequest checks a generation request. It is pure: no lookups are
// performed, so malformed tag IDs never reach the database.
func GenerateRequest(prompt string, tagIDs []string, img kramai.ImageOptions, chat kramai.ChatOptions) Result {
	var r Result

	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		r.add("prompt must not be empty")
	} else if n := utf8.RuneCountInString(prompt); n > MaxPromptLen {
		r.add("prompt must be at most %d characters, got %d", MaxPromptLen, n)
	}

	if len(tagIDs) > MaxTags {
		r.add("at most %d tags may be selected, got %d", MaxTags, len(tagIDs))
	}
	for _, id := range tagIDs {
		if !IsUUID(id) {
			r.add("tag id %q is not a valid UUID", id)
		}
	}

	if img.Size != "" && !slices.Contains(kramai.ImageSizes, img.Size) {
		r.add("image size must be one of %s", strings.Join(kramai.ImageSizes, ", "))
	}
	if img.Quality != "" && img.Quality != kramai.QualityStandard && img.Quality != kramai.QualityHD {
		r.add("image quality must be %q or %q", kramai.QualityStandard, kramai.QualityHD)
	}
	if img.Style != "" && img.Style != kramai.StyleVivid && img.Style != kramai.StyleNatural {
		r.add("image style must be %q or %q", kramai.StyleVivid, kramai.StyleNatural)
	}

	if chat.Model != "" && !slices.Contains(kramai.ChatModels, chat.Model) {
		r.add("chat model must be one of %s", strings.Join(kramai.ChatModels, ", "))
	}
	if chat.MaxTokens != 0 && (chat.MaxTokens < MinMaxTokens || chat.MaxTokens > MaxMaxTokens) {
		r.add("max_tokens must be between %d and %d", MinMaxTokens, MaxMaxTokens)
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// TagInput checks the tag creation payload.
func TagInput(name, imageURL, description string) Result {
	var r Result
	if strings.TrimSpace(name) == "" {
		r.add("name must not be empty")
	}
	if strings.TrimSpace(imageURL) == "" {
		r.add("image_url must not be empty")
	}
	if strings.TrimSpace(description) == "" {
		r.add("description must not be empty")
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// SearchTerm checks the gallery free-text search term.
func SearchTerm(search string) Result {
	var r Result
	if utf8.RuneCountInString(search) > MaxSearchLen {
		r.add("search must be at most %d characters", MaxSearchLen)
	}
	r.Valid = len(r.Errors) == 0
	return r
}
