package model

import (
	"encoding/json"
	"time"

	api "github.com/refurbd/renovation-planner/api/v1"
)

type RoomType string

const (
	RoomTypeKitchen    RoomType = "kitchen"
	RoomTypeBathroom   RoomType = "bathroom"
	RoomTypeBedroom    RoomType = "bedroom"
	RoomTypeLivingRoom RoomType = "living_room"
	RoomTypeDiningRoom RoomType = "dining_room"
	RoomTypeBasement   RoomType = "basement"
	RoomTypeOther      RoomType = "other"
)

type RenovationScope string

const (
	ScopeCosmetic RenovationScope = "cosmetic"
	ScopeModerate RenovationScope = "moderate"
	ScopeFull     RenovationScope = "full"
	ScopeLuxury   RenovationScope = "luxury"
)

type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusAnalyzing ProjectStatus = "analyzing"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

type Project struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"index;not null"`

	Name            string          `gorm:"not null"`
	RoomType        RoomType        `gorm:"type:VARCHAR(20);not null"`
	RenovationScope RenovationScope `gorm:"type:VARCHAR(20);default:moderate"`
	Status          ProjectStatus   `gorm:"type:VARCHAR(20);default:draft"`

	SquareFootage *float64
	DesiredStyle  *string `gorm:"type:VARCHAR(100)"`

	CurrentRoomImage *string `gorm:"type:TEXT"`
	InspirationImage *string `gorm:"type:TEXT"`

	VisualAssessment   *string `gorm:"type:TEXT"`
	DesignPlan         *string `gorm:"type:TEXT"`
	BudgetBreakdown    []byte  `gorm:"type:jsonb"`
	TimelineEstimate   *string `gorm:"type:TEXT"`
	EstimatedCostLow   *float64
	EstimatedCostHigh  *float64
	LocationMultiplier float64 `gorm:"default:1.0"`

	Renderings []Rendering `gorm:"constraint:OnDelete:CASCADE;"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (Project) TableName() string {
	return "projects"
}

func (p Project) String() string {
	val, _ := json.Marshal(p)
	return string(val)
}

func (p *Project) ToApiResource() api.Project {
	resource := api.Project{
		ID:                 p.ID,
		UserID:             p.UserID,
		Name:               p.Name,
		RoomType:           string(p.RoomType),
		RenovationScope:    string(p.RenovationScope),
		Status:             string(p.Status),
		SquareFootage:      p.SquareFootage,
		DesiredStyle:       p.DesiredStyle,
		VisualAssessment:   p.VisualAssessment,
		DesignPlan:         p.DesignPlan,
		TimelineEstimate:   p.TimelineEstimate,
		EstimatedCostLow:   p.EstimatedCostLow,
		EstimatedCostHigh:  p.EstimatedCostHigh,
		LocationMultiplier: p.LocationMultiplier,
		CreatedAt:          p.CreatedAt,
		CompletedAt:        p.CompletedAt,
	}
	if len(p.BudgetBreakdown) > 0 {
		_ = json.Unmarshal(p.BudgetBreakdown, &resource.BudgetBreakdown)
	}
	return resource
}
