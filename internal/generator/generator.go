// Package generator runs the generation pipeline: validate the request,
// call the image API, call the chat API for a description and tags, then
// persist. Phases are strictly sequential and nothing is written to the
// database unless every phase succeeded.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/krampattern/kram-api/internal/kramai"
	"github.com/krampattern/kram-api/internal/metrics"
	"github.com/krampattern/kram-api/internal/prompt"
	"github.com/krampattern/kram-api/internal/validate"
	"github.com/krampattern/kram-api/models"
)

// Phase is one step of the pipeline.
type Phase string

const (
	PhaseValidation  Phase = "validation"
	PhaseImage       Phase = "image_generation"
	PhaseDescription Phase = "description_generation"
	PhaseTags        Phase = "tag_generation"
	PhasePersist     Phase = "persistence"
)

// PhaseError tags a failure with the phase it happened in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ValidationError carries the accumulated validation messages.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Errors, "; ")
}

// TagNotFoundError reports selected tag IDs that do not exist.
type TagNotFoundError struct {
	Missing []string
}

func (e *TagNotFoundError) Error() string {
	return "tags not found: " + strings.Join(e.Missing, ", ")
}

// AIClient is the slice of kramai.Client the pipeline needs.
type AIClient interface {
	GenerateImage(ctx context.Context, promptText string, opts kramai.ImageOptions) (kramai.ImageResult, error)
	Complete(ctx context.Context, system, user, imageURL string, opts kramai.ChatOptions) (string, error)
}

// Archiver copies a generated image to durable storage and returns the
// public URL of the copy.
type Archiver interface {
	Archive(ctx context.Context, historyID, sourceURL string) (string, error)
}

// Request is the generation input as received over HTTP.
type Request struct {
	Prompt       string              `json:"prompt"`
	TagIDs       []string            `json:"tag_ids,omitempty"`
	DalleOptions kramai.ImageOptions `json:"dalle_options,omitempty"`
	ChatOptions  kramai.ChatOptions  `json:"chat_options,omitempty"`
}

// Result is returned after a fully persisted generation.
type Result struct {
	HistoryID     string                  `json:"history_id"`
	PromptMessage string                  `json:"prompt_message"`
	SelectedTags  []models.Tag            `json:"selected_tags"`
	Outputs       []models.OutputGenerate `json:"generated_outputs"`
	CreatedAt     time.Time               `json:"created_at"`
	Debug         *DebugInfo              `json:"debug,omitempty"`
}

// DebugInfo is populated only outside production mode.
type DebugInfo struct {
	PhaseMillis     map[Phase]int64 `json:"phase_millis"`
	CostEstimateUSD float64         `json:"cost_estimate_usd"`
	RevisedPrompt   string          `json:"revised_prompt,omitempty"`
}

const (
	descriptionSystem = "You are a textile art curator for a traditional kram pattern gallery."
	tagSystem         = "You are a textile archivist for a traditional kram pattern gallery."
)

// Generator owns the pipeline dependencies. Construct with New.
type Generator struct {
	db       *gorm.DB
	ai       AIClient
	archiver Archiver
	retry    kramai.RetryConfig
	debug    bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithArchiver enables best-effort archiving of generated images.
func WithArchiver(a Archiver) Option {
	return func(g *Generator) { g.archiver = a }
}

// WithRetryConfig overrides the per-call retry policy.
func WithRetryConfig(cfg kramai.RetryConfig) Option {
	return func(g *Generator) { g.retry = cfg }
}

// WithDebug enables timing and cost info on results.
func WithDebug(on bool) Option {
	return func(g *Generator) { g.debug = on }
}

func New(db *gorm.DB, ai AIClient, opts ...Option) *Generator {
	g := &Generator{db: db, ai: ai, retry: kramai.DefaultRetryConfig()}
	g.retry.OnRetry = func(attempt int, err error) {
		metrics.UpstreamRetries.Inc()
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate runs the full pipeline. On any failure the returned error is a
// *PhaseError and no rows have been written.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	timings := map[Phase]int64{}

	// validation
	start := time.Now()
	if v := validate.GenerateRequest(req.Prompt, req.TagIDs, req.DalleOptions, req.ChatOptions); !v.Valid {
		return nil, g.fail(logger, PhaseValidation, start, &ValidationError{Errors: v.Errors})
	}

	// tag lookup; validation already guaranteed UUID shapes
	selected, err := g.lookupTags(req.TagIDs)
	if err != nil {
		return nil, g.fail(logger, PhaseValidation, start, err)
	}
	timings[PhaseValidation] = time.Since(start).Milliseconds()

	tagCtxs := make([]prompt.TagContext, len(selected))
	for i, t := range selected {
		tagCtxs[i] = prompt.TagContext{Name: t.Name, Description: t.Description}
	}

	// image generation
	start = time.Now()
	imgOpts := req.DalleOptions
	style := imgOpts.Style
	if style == "" {
		style = kramai.StyleVivid
	}
	imagePrompt := prompt.BuildImagePrompt(req.Prompt, tagCtxs, style)
	img, err := kramai.Retry(ctx, g.retry, func(ctx context.Context) (kramai.ImageResult, error) {
		return g.ai.GenerateImage(ctx, imagePrompt, imgOpts)
	})
	if err != nil {
		return nil, g.fail(logger, PhaseImage, start, err)
	}
	timings[PhaseImage] = time.Since(start).Milliseconds()
	logger.Info().Str("phase", string(PhaseImage)).Int64("elapsed_ms", timings[PhaseImage]).Msg("image generated")

	// description generation, looking at the generated image
	start = time.Now()
	description, err := kramai.Retry(ctx, g.retry, func(ctx context.Context) (string, error) {
		return g.ai.Complete(ctx, descriptionSystem, prompt.BuildDescriptionPrompt(req.Prompt), img.URL, req.ChatOptions)
	})
	if err != nil {
		return nil, g.fail(logger, PhaseDescription, start, err)
	}
	timings[PhaseDescription] = time.Since(start).Milliseconds()

	// tag generation
	start = time.Now()
	tagsText, err := kramai.Retry(ctx, g.retry, func(ctx context.Context) (string, error) {
		return g.ai.Complete(ctx, tagSystem, prompt.BuildTagPrompt(req.Prompt, description), "", req.ChatOptions)
	})
	if err != nil {
		return nil, g.fail(logger, PhaseTags, start, err)
	}
	outputTags := strings.Join(prompt.ParseTags(tagsText), ", ")
	timings[PhaseTags] = time.Since(start).Milliseconds()

	// persistence
	start = time.Now()
	historyID := uuid.NewString()

	imageURL := img.URL
	if g.archiver != nil {
		if archived, aerr := g.archiver.Archive(ctx, historyID, img.URL); aerr != nil {
			logger.Warn().Err(aerr).Msg("archive failed, keeping upstream url")
		} else {
			imageURL = archived
		}
	}

	history := models.History{
		ID:            historyID,
		PromptMessage: req.Prompt,
		CreatedAt:     time.Now().UTC(),
	}
	if len(selected) > 0 {
		// only the first selected tag is linked on the row; the full
		// selection travels in the response
		history.TagID = &selected[0].ID
	}
	output := models.OutputGenerate{
		ID:             uuid.NewString(),
		HistoryID:      historyID,
		PromptImageURL: imageURL,
		Description:    description,
		OutputTags:     outputTags,
		CreatedAt:      time.Now().UTC(),
	}

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		return tx.Create(&output).Error
	})
	if err != nil {
		return nil, g.fail(logger, PhasePersist, start, err)
	}
	timings[PhasePersist] = time.Since(start).Milliseconds()

	metrics.Generations.WithLabelValues("ok").Inc()

	if selected == nil {
		selected = []models.Tag{}
	}
	res := &Result{
		HistoryID:     historyID,
		PromptMessage: req.Prompt,
		SelectedTags:  selected,
		Outputs:       []models.OutputGenerate{output},
		CreatedAt:     history.CreatedAt,
	}
	if g.debug {
		res.Debug = &DebugInfo{
			PhaseMillis:     timings,
			CostEstimateUSD: estimateCost(imgOpts),
			RevisedPrompt:   img.RevisedPrompt,
		}
	}
	return res, nil
}

func (g *Generator) lookupTags(ids []string) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// repeated ids count once
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	var tags []models.Tag
	if err := g.db.Where("id IN ?", unique).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(unique) {
		found := make(map[string]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		var missing []string
		for _, id := range unique {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, &TagNotFoundError{Missing: missing}
	}
	// keep request order so the first selected tag stays first
	byID := make(map[string]models.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	ordered := make([]models.Tag, 0, len(unique))
	for _, id := range unique {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

func (g *Generator) fail(logger *zerolog.Logger, phase Phase, start time.Time, err error) error {
	elapsed := time.Since(start)
	metrics.Generations.WithLabelValues(string(phase)).Inc()
	logger.Error().Err(err).Str("phase", string(phase)).Dur("elapsed", elapsed).Msg("generation failed")
	return &PhaseError{Phase: phase, Err: err}
}

// estimateCost approximates the dall-e-3 image price for debug output.
func estimateCost(opts kramai.ImageOptions) float64 {
	hd := opts.Quality == kramai.QualityHD
	switch opts.Size {
	case kramai.SizeLandscape, kramai.SizePortrait:
		if hd {
			return 0.12
		}
		return 0.08
	default:
		if hd {
			return 0.08
		}
		return 0.04
	}
}
