package model

import (
	"time"

	api "github.com/refurbd/renovation-planner/api/v1"
)

type Rendering struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"index;not null"`
	ProjectID int64 `gorm:"index;not null"`

	ImagePath     string  `gorm:"type:TEXT;not null"`
	ThumbnailPath *string `gorm:"type:TEXT"`

	PromptUsed string `gorm:"type:TEXT;not null"`
	ImageSize  string `gorm:"type:VARCHAR(20);not null"`
	ModelUsed  string `gorm:"type:VARCHAR(50);default:dall-e-3"`

	Version           int    `gorm:"default:1"`
	ParentRenderingID *int64 `gorm:"index"`
	IsLatest          bool   `gorm:"default:true"`

	GenerationTimeSeconds *int

	CreatedAt time.Time
}

func (Rendering) TableName() string {
	return "renderings"
}

func (r *Rendering) ToApiResource() api.Rendering {
	return api.Rendering{
		ID:                    r.ID,
		UserID:                r.UserID,
		ProjectID:             r.ProjectID,
		ImagePath:             r.ImagePath,
		PromptUsed:            r.PromptUsed,
		ImageSize:             r.ImageSize,
		Version:               r.Version,
		ParentRenderingID:     r.ParentRenderingID,
		IsLatest:              r.IsLatest,
		GenerationTimeSeconds: r.GenerationTimeSeconds,
		CreatedAt:             r.CreatedAt,
	}
}

type RenderingList []Rendering

func (rl RenderingList) ToApiResource() []api.Rendering {
	renderings := make([]api.Rendering, 0, len(rl))
	for i := range rl {
		renderings = append(renderings, rl[i].ToApiResource())
	}
	return renderings
}
