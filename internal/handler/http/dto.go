package handler

import (
	"strings"

	"github.com/aniladanir/lead-funnel/internal/domain"
)

type CreateLeadRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=200"`
	Email  string `json:"email" binding:"omitempty,email"`
	Phone  string `json:"phone" binding:"omitempty,max=32"`
	Source string `json:"source" binding:"omitempty,max=100"`
}

type LeadResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Source       *string `json:"source,omitempty"`
	Status       string  `json:"status"`
	ScheduledURL *string `json:"scheduled_url,omitempty"`
}

type InboundRequest struct {
	LeadID  int    `json:"lead_id" binding:"required,gt=0"`
	Channel string `json:"channel" binding:"required,oneof=sms email"`
	Content string `json:"content" binding:"required,min=1"`
}

type ScheduledRequest struct {
	LeadID     int    `form:"lead_id" json:"lead_id"`
	MeetingURL string `form:"meeting_url" json:"meeting_url"`
	Version    *int   `form:"version" json:"version"`
}

type OKResponse struct {
	OK      bool `json:"ok"`
	Version *int `json:"version,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Scheduler string `json:"scheduler"`
	Error     string `json:"error,omitempty"`
}

func newLeadResponse(lead *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:           lead.ID,
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Source:       lead.Source,
		Status:       string(lead.Status),
		ScheduledURL: lead.ScheduledURL,
	}
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
