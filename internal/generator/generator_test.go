package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/krampattern/kram-api/internal/kramai"
	"github.com/krampattern/kram-api/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tag{}, &models.History{}, &models.OutputGenerate{}))
	return db
}

// stubAI scripts the two external calls.
type stubAI struct {
	imageErr    error
	descErr     error
	tagErr      error
	imageCalls  int
	description string
	tagText     string
}

func (s *stubAI) GenerateImage(ctx context.Context, promptText string, opts kramai.ImageOptions) (kramai.ImageResult, error) {
	s.imageCalls++
	if s.imageErr != nil {
		return kramai.ImageResult{}, s.imageErr
	}
	return kramai.ImageResult{URL: "https://upstream.example/generated.png", RevisedPrompt: "revised"}, nil
}

func (s *stubAI) Complete(ctx context.Context, system, user, imageURL string, opts kramai.ChatOptions) (string, error) {
	if imageURL != "" {
		if s.descErr != nil {
			return "", s.descErr
		}
		return s.description, nil
	}
	if s.tagErr != nil {
		return "", s.tagErr
	}
	return s.tagText, nil
}

func fastRetry() kramai.RetryConfig {
	return kramai.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func seedTag(t *testing.T, db *gorm.DB, name string) models.Tag {
	t.Helper()
	tag := models.Tag{ID: uuid.NewString(), Name: name, Description: name + " weave", ImageURL: "https://img.example/" + name + ".png"}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func countRows(t *testing.T, db *gorm.DB) (histories, outputs int64) {
	t.Helper()
	require.NoError(t, db.Model(&models.History{}).Count(&histories).Error)
	require.NoError(t, db.Model(&models.OutputGenerate{}).Count(&outputs).Error)
	return
}

func TestGenerateSuccessPersistsOneHistoryAndOutput(t *testing.T) {
	db := testDB(t)
	ai := &stubAI{description: "An indigo spiral panel.", tagText: "Indigo, Spiral , coastal"}
	gen := New(db, ai, WithRetryConfig(fastRetry()))

	res, err := gen.Generate(context.Background(), Request{Prompt: "a spiral indigo motif"})
	require.NoError(t, err)
	require.NotEmpty(t, res.HistoryID)
	require.Len(t, res.Outputs, 1)
	require.Equal(t, res.HistoryID, res.Outputs[0].HistoryID)
	require.Equal(t, "indigo, spiral, coastal", res.Outputs[0].OutputTags)
	require.Equal(t, "An indigo spiral panel.", res.Outputs[0].Description)

	var h models.History
	require.NoError(t, db.First(&h, "id = ?", res.HistoryID).Error)
	require.Equal(t, "a spiral indigo motif", h.PromptMessage)
	require.Nil(t, h.TagID)

	histories, outputs := countRows(t, db)
	require.EqualValues(t, 1, histories)
	require.EqualValues(t, 1, outputs)
}

func TestGenerateLinksFirstSelectedTag(t *testing.T) {
	db := testDB(t)
	first := seedTag(t, db, "songket")
	second := seedTag(t, db, "ikat")

	ai := &stubAI{description: "d", tagText: "t"}
	gen := New(db, ai, WithRetryConfig(fastRetry()))

	res, err := gen.Generate(context.Background(), Request{
		Prompt: "waves",
		TagIDs: []string{first.ID, second.ID},
	})
	require.NoError(t, err)

	// response carries the whole selection, the row only the first tag
	require.Len(t, res.SelectedTags, 2)
	require.Equal(t, first.ID, res.SelectedTags[0].ID)

	var h models.History
	require.NoError(t, db.First(&h, "id = ?", res.HistoryID).Error)
	require.NotNil(t, h.TagID)
	require.Equal(t, first.ID, *h.TagID)
}

func TestGenerateAcceptsRepeatedTagID(t *testing.T) {
	db := testDB(t)
	tag := seedTag(t, db, "batik")

	ai := &stubAI{description: "d", tagText: "t"}
	gen := New(db, ai, WithRetryConfig(fastRetry()))

	res, err := gen.Generate(context.Background(), Request{
		Prompt: "waves",
		TagIDs: []string{tag.ID, tag.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.SelectedTags, 1)
	require.Equal(t, tag.ID, res.SelectedTags[0].ID)

	var h models.History
	require.NoError(t, db.First(&h, "id = ?", res.HistoryID).Error)
	require.NotNil(t, h.TagID)
	require.Equal(t, tag.ID, *h.TagID)
}

func TestGenerateValidationFailureWritesNothing(t *testing.T) {
	db := testDB(t)
	gen := New(db, &stubAI{}, WithRetryConfig(fastRetry()))

	_, err := gen.Generate(context.Background(), Request{Prompt: ""})
	var perr *PhaseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, PhaseValidation, perr.Phase)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	histories, outputs := countRows(t, db)
	require.Zero(t, histories)
	require.Zero(t, outputs)
}

func TestGenerateUnknownTagIsNotFound(t *testing.T) {
	db := testDB(t)
	gen := New(db, &stubAI{}, WithRetryConfig(fastRetry()))

	missing := uuid.NewString()
	_, err := gen.Generate(context.Background(), Request{Prompt: "waves", TagIDs: []string{missing}})
	var nferr *TagNotFoundError
	require.ErrorAs(t, err, &nferr)
	require.Equal(t, []string{missing}, nferr.Missing)
}

func TestGenerateMalformedTagIDSkipsLookup(t *testing.T) {
	db := testDB(t)
	gen := New(db, &stubAI{}, WithRetryConfig(fastRetry()))

	_, err := gen.Generate(context.Background(), Request{Prompt: "waves", TagIDs: []string{"nope"}})
	var perr *PhaseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, PhaseValidation, perr.Phase)
	var nferr *TagNotFoundError
	require.False(t, errors.As(err, &nferr))
}

func TestGeneratePhaseFailuresWriteNothing(t *testing.T) {
	upstream := &kramai.Error{Kind: kramai.KindTransient, Op: "op", Err: errors.New("down")}

	cases := []struct {
		name  string
		ai    *stubAI
		phase Phase
	}{
		{"image", &stubAI{imageErr: upstream}, PhaseImage},
		{"description", &stubAI{descErr: upstream}, PhaseDescription},
		{"tags", &stubAI{description: "d", tagErr: upstream}, PhaseTags},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			db := testDB(t)
			gen := New(db, c.ai, WithRetryConfig(fastRetry()))

			_, err := gen.Generate(context.Background(), Request{Prompt: "waves"})
			var perr *PhaseError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, c.phase, perr.Phase)

			histories, outputs := countRows(t, db)
			require.Zero(t, histories)
			require.Zero(t, outputs)
		})
	}
}

func TestGenerateContentPolicyFailsWithoutRetry(t *testing.T) {
	db := testDB(t)
	ai := &stubAI{imageErr: &kramai.Error{Kind: kramai.KindContentPolicy, Op: "op", Err: errors.New("rejected")}}
	gen := New(db, ai, WithRetryConfig(fastRetry()))

	_, err := gen.Generate(context.Background(), Request{Prompt: "waves"})
	require.Error(t, err)
	require.Equal(t, 1, ai.imageCalls)
	require.Equal(t, kramai.KindContentPolicy, kramai.KindOf(errors.Unwrap(err)))
}

func TestGenerateDebugInfo(t *testing.T) {
	db := testDB(t)
	ai := &stubAI{description: "d", tagText: "t"}
	gen := New(db, ai, WithRetryConfig(fastRetry()), WithDebug(true))

	res, err := gen.Generate(context.Background(), Request{
		Prompt:       "waves",
		DalleOptions: kramai.ImageOptions{Quality: kramai.QualityHD},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Debug)
	require.Equal(t, 0.08, res.Debug.CostEstimateUSD)
	require.Contains(t, res.Debug.PhaseMillis, PhasePersist)
	require.Equal(t, "revised", res.Debug.RevisedPrompt)
}

type stubArchiver struct {
	url string
	err error
}

func (s *stubArchiver) Archive(ctx context.Context, historyID, sourceURL string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestGenerateUsesArchivedURL(t *testing.T) {
	db := testDB(t)
	ai := &stubAI{description: "d", tagText: "t"}
	gen := New(db, ai, WithRetryConfig(fastRetry()), WithArchiver(&stubArchiver{url: "https://cdn.example/kram/x/original.png"}))

	res, err := gen.Generate(context.Background(), Request{Prompt: "waves"})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/kram/x/original.png", res.Outputs[0].PromptImageURL)
}

func TestGenerateArchiveFailureKeepsUpstreamURL(t *testing.T) {
	db := testDB(t)
	ai := &stubAI{description: "d", tagText: "t"}
	gen := New(db, ai, WithRetryConfig(fastRetry()), WithArchiver(&stubArchiver{err: errors.New("bucket down")}))

	res, err := gen.Generate(context.Background(), Request{Prompt: "waves"})
	require.NoError(t, err)
	require.Equal(t, "https://upstream.example/generated.png", res.Outputs[0].PromptImageURL)
}
