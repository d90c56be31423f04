// Package gallery builds the paginated search queries over persisted
// generations. Reads tolerate transient database unavailability with a
// bounded retry around the whole query.
package gallery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/krampattern/kram-api/internal/metrics"
	"github.com/krampattern/kram-api/models"
)

// ErrNotFound indicates no gallery item matched the id.
var ErrNotFound = errors.New("not found")

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var sortColumns = map[string]string{
	"create_at":      "history.create_at",
	"prompt_message": "history.prompt_message",
}

// Query are the normalized listing parameters.
type Query struct {
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize clamps pagination and restricts sorting to the whitelist.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		q.SortBy = "create_at"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	return q
}

// Pagination is the metadata block returned with every page.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
	Limit       int   `json:"limit"`
}

// RetryPolicy bounds the retry around a read when the database is away.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy: up to 3 attempts, delay doubling from 1 second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Second}
}

// Store runs gallery reads against the database.
type Store struct {
	db    *gorm.DB
	retry RetryPolicy
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, retry: DefaultRetryPolicy()}
}

// NewStoreWithRetry overrides the retry policy, used in tests.
func NewStoreWithRetry(db *gorm.DB, retry RetryPolicy) *Store {
	return &Store{db: db, retry: retry}
}

// List returns one page of histories with their tag and outputs preloaded.
// Search matches case-insensitively against the prompt, the linked tag's
// name and description, and any output's description or tag string.
func (s *Store) List(ctx context.Context, q Query) ([]models.History, Pagination, error) {
	q = q.Normalize()

	var rows []models.History
	var total int64

	err := s.withRetry(ctx, func() error {
		rows = rows[:0]
		total = 0

		base := s.db.WithContext(ctx).Model(&models.History{})
		if q.Search != "" {
			pat := "%" + strings.ToLower(q.Search) + "%"
			base = base.
				Joins("LEFT JOIN tags ON tags.id = history.tags_id").
				Joins("LEFT JOIN output_generate ON output_generate.history_id = history.id").
				Where(
					`LOWER(history.prompt_message) LIKE ?
					OR LOWER(tags.name) LIKE ?
					OR LOWER(tags.description) LIKE ?
					OR LOWER(output_generate.description) LIKE ?
					OR LOWER(output_generate.output_tags) LIKE ?`,
					pat, pat, pat, pat, pat,
				)
		}

		if err := base.Session(&gorm.Session{}).Distinct("history.id").Count(&total).Error; err != nil {
			return err
		}

		return base.Session(&gorm.Session{}).
			Select("DISTINCT history.*").
			Preload("Tag").
			Preload("Outputs").
			Order(sortColumns[q.SortBy] + " " + q.SortOrder).
			Offset((q.Page - 1) * q.Limit).
			Limit(q.Limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return rows, Pagination{
		CurrentPage: q.Page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     q.Page < totalPages,
		HasPrev:     q.Page > 1 && total > 0,
		Limit:       q.Limit,
	}, nil
}

// Get returns a single history with tag and outputs, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.History, error) {
	var row models.History
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Preload("Tag").
			Preload("Outputs").
			First(&row, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// withRetry pings the connection and reruns op on transient failures.
// Record-not-found is a final answer and never retried.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	logger := zerolog.Ctx(ctx)
	delay := s.retry.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		if attempt > 1 {
			metrics.GalleryQueryRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.PingContext(ctx); err != nil {
				lastErr = err
				logger.Warn().Err(err).Int("attempt", attempt).Msg("database ping failed")
				continue
			}
		}

		lastErr = op()
		if lastErr == nil || errors.Is(lastErr, gorm.ErrRecordNotFound) {
			return lastErr
		}
		logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("gallery query failed")
	}
	return lastErr
}
