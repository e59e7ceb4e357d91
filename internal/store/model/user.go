package model

import "time"

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// User carries only the slice of the account record the job core needs:
// ownership, tier and the monthly usage counter.
type User struct {
	ID    int64  `gorm:"primaryKey"`
	Email string `gorm:"uniqueIndex;not null"`

	FullName *string `gorm:"type:VARCHAR(255)"`
	City     *string `gorm:"type:VARCHAR(100)"`
	State    *string `gorm:"type:VARCHAR(2)"`
	Country  *string `gorm:"type:VARCHAR(2)"`

	SubscriptionTier      SubscriptionTier `gorm:"type:VARCHAR(20);default:free"`
	AnalysesUsedThisMonth int              `gorm:"default:0"`
	LastAnalysisReset     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}
