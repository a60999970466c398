package domain

import (
	"time"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

type DeliveryStatus string

const (
	DeliveryReceived DeliveryStatus = "received"
	DeliveryPending  DeliveryStatus = "pending"
	DeliverySent     DeliveryStatus = "sent"
	DeliveryFailed   DeliveryStatus = "failed"
)

// Message is one entry of the append-only conversation log of a lead.
type Message struct {
	ID            int            `gorm:"primaryKey" json:"id"`
	LeadID        int            `gorm:"not null;index" json:"lead_id"`
	Direction     Direction      `gorm:"type:varchar(8);not null" json:"direction"`
	Channel       Channel        `gorm:"type:varchar(8);not null" json:"channel"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Delivery      DeliveryStatus `gorm:"type:varchar(16);not null" json:"delivery"`
	DeliveryError string         `gorm:"type:text" json:"delivery_error,omitempty"`
	ProviderID    string         `gorm:"type:varchar(100)" json:"provider_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// OutboundMessage is a message the lifecycle engine wants delivered to a lead.
type OutboundMessage struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}

// Receipt is returned by a gateway after a successful hand-off.
type Receipt struct {
	ProviderID string
}

type WebhookResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}
