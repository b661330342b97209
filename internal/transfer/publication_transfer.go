package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	Subject string `json:"sub_id"`
	jwt.RegisteredClaims
}

type PostFromProductRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

type ScheduleRequest struct {
	PostID          int64      `json:"post_id" validate:"required,gt=0"`
	Platform        string     `json:"platform" validate:"required"`
	TargetAccount   string     `json:"target_account" validate:"required,max=255"`
	CaptionOverride *string    `json:"caption_override" validate:"omitempty,max=2200"`
	ScheduledTime   *time.Time `json:"scheduled_time"`
}
