// Package entitlement 判断订阅是否有权使用统计分析和 API.
package entitlement

import (
	"errors"
	"time"

	"qrcode-platform/internal/model"
)

// ErrPlanRequired 当前套餐无权访问
var ErrPlanRequired = errors.New("当前套餐不支持该功能，请升级")

// PlanState 返回给前端用于升级提示
type PlanState struct {
	Plan            string     `json:"plan"`
	Status          string     `json:"status"`
	TrialEndsAt     *time.Time `json:"trialEndsAt,omitempty"`
	UpgradeRequired bool       `json:"upgradeRequired"`
}

// IsPaidPlan 是否付费套餐
func IsPaidPlan(plan string) bool {
	return plan == model.PlanPro || plan == model.PlanBusiness
}

// CanAccessAnalytics 付费套餐处于有效状态, 或付费套餐试用期未结束
func CanAccessAnalytics(sub *model.Subscription, now time.Time) bool {
	if sub == nil || !IsPaidPlan(sub.Plan) {
		return false
	}
	switch sub.Status {
	case model.StatusActive:
		return true
	case model.StatusTrialing:
		return sub.TrialEndsAt != nil && now.Before(*sub.TrialEndsAt)
	}
	return false
}

// CheckAnalytics 校验权限, 无权时返回 ErrPlanRequired 和套餐状态
func CheckAnalytics(sub *model.Subscription, now time.Time) (PlanState, error) {
	state := PlanState{Plan: model.PlanFree, Status: model.StatusActive}
	if sub != nil {
		state.Plan = sub.Plan
		state.Status = sub.Status
		state.TrialEndsAt = sub.TrialEndsAt
	}
	if !CanAccessAnalytics(sub, now) {
		state.UpgradeRequired = true
		return state, ErrPlanRequired
	}
	return state, nil
}
