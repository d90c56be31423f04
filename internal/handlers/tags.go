package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/krampattern/kram-api/internal/validate"
	"github.com/krampattern/kram-api/models"
)

// CreateTagInput is the tag creation payload.
type CreateTagInput struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

// ListTags returns every selectable style tag.
func ListTags(w http.ResponseWriter, r *http.Request, db *gorm.DB) {
	var tags []models.Tag
	if err := db.WithContext(r.Context()).Order("name asc").Find(&tags).Error; err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list tags failed")
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	writeData(w, http.StatusOK, tags, "")
}

// CreateTag adds a style tag. Name uniqueness is enforced
// case-insensitively at write time.
func CreateTag(w http.ResponseWriter, r *http.Request, db *gorm.DB) {
	var input CreateTagInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if v := validate.TagInput(input.Name, input.ImageURL, input.Description); !v.Valid {
		writeError(w, http.StatusBadRequest, strings.Join(v.Errors, "; "))
		return
	}

	ctx := r.Context()
	var existing models.Tag
	err := db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", input.Name).First(&existing).Error
	if err == nil {
		writeError(w, http.StatusConflict, "a tag with this name already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("tag lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to create tag")
		return
	}

	tag := models.Tag{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		ImageURL:    input.ImageURL,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&tag).Error; err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("tag create failed")
		writeError(w, http.StatusInternalServerError, "failed to create tag")
		return
	}

	writeData(w, http.StatusCreated, tag, "tag created")
}
