package model

import "time"

// 套餐
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// 订阅状态
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusCanceled = "canceled"
	StatusPastDue  = "past_due"
	StatusExpired  = "expired"
)

// Subscription 用户订阅, 每个用户一条
type Subscription struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	UserID           uint       `gorm:"not null;uniqueIndex" json:"userId"`
	Plan             string     `gorm:"size:20;not null;default:'free'" json:"plan"`
	Status           string     `gorm:"size:20;not null;default:'active'" json:"status"`
	TrialEndsAt      *time.Time `json:"trialEndsAt,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
