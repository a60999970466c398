package domain

import (
	"time"
)

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadEngaged   LeadStatus = "engaged"
	LeadScheduled LeadStatus = "scheduled"
)

type Lead struct {
	ID              int        `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"type:varchar(200);not null" json:"name"`
	Email           *string    `gorm:"type:varchar(254)" json:"email,omitempty"`
	Phone           *string    `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Source          *string    `gorm:"type:varchar(100)" json:"source,omitempty"`
	Status          LeadStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ScheduledURL    *string    `gorm:"type:text" json:"scheduled_url,omitempty"`
	ScheduleVersion int        `gorm:"not null;default:0" json:"schedule_version"`
	NextNudgeAt     *time.Time `gorm:"index" json:"next_nudge_at,omitempty"`
	NudgesSent      int        `gorm:"not null;default:0" json:"nudges_sent"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsDue reports whether the lead should receive a nudge at now.
func (l *Lead) IsDue(now time.Time) bool {
	return l.Status != LeadScheduled && l.NextNudgeAt != nil && !l.NextNudgeAt.After(now)
}

// PhoneNumber returns the phone number or an empty string.
func (l *Lead) PhoneNumber() string {
	if l.Phone == nil {
		return ""
	}
	return *l.Phone
}

// EmailAddress returns the email address or an empty string.
func (l *Lead) EmailAddress() string {
	if l.Email == nil {
		return ""
	}
	return *l.Email
}
