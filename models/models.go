package models

import (
	"time"
)

// Tag is a selectable textile style reference shown in the picker.
type Tag struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	ImageURL    string    `json:"image_url" gorm:"column:image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// History records one generation request. TagID keeps only the first
// selected tag; the full selection is returned at the API boundary.
type History struct {
	ID            string           `json:"id" gorm:"type:uuid;primaryKey"`
	PromptMessage string           `json:"prompt_message" gorm:"column:prompt_message;type:text;not null"`
	TagID         *string          `json:"tags_id" gorm:"column:tags_id;type:uuid"`
	Tag           *Tag             `json:"tag,omitempty" gorm:"foreignKey:TagID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	CreatedAt     time.Time        `json:"create_at" gorm:"column:create_at"`
	Outputs       []OutputGenerate `json:"outputs,omitempty" gorm:"foreignKey:HistoryID"`
}

func (History) TableName() string { return "history" }

// OutputGenerate is one generated artifact linked to a History row.
// OutputTags is a comma-separated string; no format is enforced on read.
type OutputGenerate struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	HistoryID      string    `json:"history_id" gorm:"column:history_id;type:uuid;not null"`
	History        *History  `json:"-" gorm:"foreignKey:HistoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	PromptImageURL string    `json:"prompt_image_url" gorm:"column:prompt_image_url"`
	Description    string    `json:"description" gorm:"type:text"`
	OutputTags     string    `json:"output_tags" gorm:"column:output_tags"`
	CreatedAt      time.Time `json:"created_at"`
}

func (OutputGenerate) TableName() string { return "output_generate" }
