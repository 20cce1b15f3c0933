package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCategory is applied by updates that do not name a category.
const DefaultCategory = "General"

// Layout is a single uploaded asset stored in MongoDB.
type Layout struct {
	ID          primitive.ObjectID `json:"_id"                   bson:"_id,omitempty"`
	Title       string             `json:"title"                 bson:"title"`
	Type        string             `json:"type"                  bson:"type"`
	Thumbnail   string             `json:"thumbnail"             bson:"thumbnail"`
	File        []string           `json:"file"                  bson:"file"`
	TechStack   []string           `json:"techStack"             bson:"techStack"`
	Archived    bool               `json:"archived"              bson:"archived"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Category    string             `json:"category,omitempty"    bson:"category,omitempty"`
	CreatedBy   string             `json:"createdBy"             bson:"createdBy"`
	CreatedAt   time.Time          `json:"createdAt"             bson:"createdAt"`
}

// StoredFiles returns every stored file name the layout references.
func (l *Layout) StoredFiles() []string {
	names := make([]string, 0, len(l.File)+1)
	if l.Thumbnail != "" {
		names = append(names, l.Thumbnail)
	}
	for _, f := range l.File {
		if f != "" {
			names = append(names, f)
		}
	}
	return names
}

// Owner is the expanded createdBy reference.
type Owner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LayoutView is a layout with its owner expanded. The outer CreatedBy
// shadows the embedded one when encoded.
type LayoutView struct {
	Layout
	CreatedBy *Owner `json:"createdBy"`
}

// LayoutFilter selects layouts for listing. An empty Type matches any type.
type LayoutFilter struct {
	Type     string
	Archived bool
}

// LayoutUpdate carries a full replacement of the descriptive fields.
// Thumbnail and File are replaced only when non-nil.
type LayoutUpdate struct {
	Title       string
	Type        string
	Description string
	Category    string
	TechStack   []string
	Thumbnail   *string
	File        []string
}

// LayoutForm holds the text fields of an upload or update form.
type LayoutForm struct {
	Title       string `validate:"required"`
	Type        string `validate:"required"`
	Description string
	Category    string
	TechStack   []string
}
