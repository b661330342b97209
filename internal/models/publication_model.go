package models

import (
	"fmt"
	"strings"
	"time"
)

type SocialPlatform string

const (
	PlatformInstagram SocialPlatform = "INSTAGRAM"
	PlatformFacebook  SocialPlatform = "FACEBOOK"
)

var SocialPlatforms = []SocialPlatform{PlatformInstagram, PlatformFacebook}

func ParseSocialPlatform(s string) (SocialPlatform, error) {
	p := SocialPlatform(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PlatformInstagram, PlatformFacebook:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

type PublicationStatus string

const (
	StatusPending    PublicationStatus = "PENDING"
	StatusQueued     PublicationStatus = "QUEUED"
	StatusPublishing PublicationStatus = "PUBLISHING"
	StatusPublished  PublicationStatus = "PUBLISHED"
	StatusFailed     PublicationStatus = "FAILED"
	StatusCancelled  PublicationStatus = "CANCELLED"
	StatusSkipped    PublicationStatus = "SKIPPED"
)

var PublicationStatuses = []PublicationStatus{
	StatusPending, StatusQueued, StatusPublishing, StatusPublished,
	StatusFailed, StatusCancelled, StatusSkipped,
}

func ParsePublicationStatus(s string) (PublicationStatus, error) {
	st := PublicationStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range PublicationStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown publication status %q", s)
}

// IsTerminal reports whether the dispatcher must leave the row alone.
func (s PublicationStatus) IsTerminal() bool {
	switch s {
	case StatusPublished, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}

// IsPendingLike reports whether the row is waiting to be dispatched.
func (s PublicationStatus) IsPendingLike() bool {
	return s == StatusPending || s == StatusQueued
}

type Publication struct {
	ID              int64             `db:"post_publication_id" json:"id"`
	PostID          int64             `db:"post_id" json:"post_id"`
	Platform        SocialPlatform    `db:"platform" json:"platform"`
	TargetAccount   string            `db:"target_account" json:"target_account"`
	CaptionOverride *string           `db:"caption_override" json:"caption_override,omitempty"`
	Status          PublicationStatus `db:"status" json:"status"`
	ScheduledTime   *time.Time        `db:"scheduled_time" json:"scheduled_time,omitempty"`
	PublishedAt     *time.Time        `db:"published_at" json:"published_at,omitempty"`
	PlatformPostID  *string           `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage    *string           `db:"error_message" json:"error_message,omitempty"`
	LastAttemptAt   *time.Time        `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	AttemptCount    int               `db:"attempt_count" json:"attempt_count"`
}
