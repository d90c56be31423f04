package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/krampattern/kram-api/internal/gallery"
	"github.com/krampattern/kram-api/internal/validate"
	"github.com/krampattern/kram-api/models"
)

// GalleryPage is the data payload of the listing endpoint.
type GalleryPage struct {
	Items      []models.History   `json:"items"`
	Pagination gallery.Pagination `json:"pagination"`
}

// ListGallery returns a searched, sorted, paginated page of generations.
func ListGallery(w http.ResponseWriter, r *http.Request, store *gallery.Store) {
	params := r.URL.Query()

	search := params.Get("search")
	if v := validate.SearchTerm(search); !v.Valid {
		writeError(w, http.StatusBadRequest, strings.Join(v.Errors, "; "))
		return
	}

	page, _ := strconv.Atoi(params.Get("page"))
	limit, _ := strconv.Atoi(params.Get("limit"))

	q := gallery.Query{
		Search:    search,
		Page:      page,
		Limit:     limit,
		SortBy:    params.Get("sortBy"),
		SortOrder: params.Get("sortOrder"),
	}

	rows, pagination, err := store.List(r.Context(), q)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("gallery query failed")
		writeError(w, http.StatusServiceUnavailable, "gallery is temporarily unavailable")
		return
	}
	if rows == nil {
		rows = []models.History{}
	}

	writeData(w, http.StatusOK, GalleryPage{Items: rows, Pagination: pagination}, "")
}

// GetGalleryItem returns a single generation by id.
func GetGalleryItem(w http.ResponseWriter, r *http.Request, store *gallery.Store) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		writeError(w, http.StatusBadRequest, "malformed gallery id")
		return
	}

	row, err := store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			writeError(w, http.StatusNotFound, "gallery item not found")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("gallery lookup failed")
		writeError(w, http.StatusServiceUnavailable, "gallery is temporarily unavailable")
		return
	}

	writeData(w, http.StatusOK, row, "")
}
