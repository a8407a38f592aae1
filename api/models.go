package api

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the authenticated user record.
type Profile struct {
	ID                  uuid.UUID `json:"id"`
	Email               string    `json:"email"`
	NotificationsPaused bool      `json:"notificationsPaused"`
	CreatedAt           time.Time `json:"createdAt"`
	GravatarURL         string    `json:"gravatarUrl"`
}

// Account statuses reported by the backend.
const (
	AccountActive       = "ACTIVE"
	AccountPaused       = "PAUSED"
	AccountDisconnected = "DISCONNECTED"
)

// EmailAccount is a connected mailbox.
type EmailAccount struct {
	ID            uuid.UUID  `json:"id"`
	Provider      string     `json:"provider"`
	EmailAddress  string     `json:"emailAddress"`
	Status        string     `json:"status"`
	LastScannedAt *time.Time `json:"lastScannedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Channel types.
const (
	ChannelSlack    = "slack"
	ChannelWhatsApp = "whatsapp"
)

// ChannelRequest creates or updates a notification channel.
type ChannelRequest struct {
	ChannelType         string `json:"channelType" validate:"required,oneof=slack whatsapp"`
	BotToken            string `json:"botToken,omitempty" validate:"required_if=ChannelType slack"`
	SlackChannelID      string `json:"slackChannelId,omitempty" validate:"required_if=ChannelType slack"`
	WhatsappPhoneNumber string `json:"whatsappPhoneNumber,omitempty" validate:"required_if=ChannelType whatsapp"`
	TwilioSid           string `json:"twilioSid,omitempty"`
	ConsentGiven        bool   `json:"consentGiven"`
}

// Channel is a configured notification destination.
type Channel struct {
	ID                  uuid.UUID `json:"id"`
	ChannelType         string    `json:"channelType"`
	Status              string    `json:"status"`
	SlackChannelID      string    `json:"slackChannelId,omitempty"`
	WhatsappPhoneNumber string    `json:"whatsappPhoneNumber,omitempty"`
	ConsentGiven        bool      `json:"consentGiven"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Rule types.
const (
	RuleSender         = "sender"
	RuleSubjectKeyword = "subject_keyword"
)

// FilterRuleRequest creates or replaces a filter rule.
type FilterRuleRequest struct {
	RuleType string `json:"ruleType" validate:"required,oneof=sender subject_keyword"`
	Pattern  string `json:"pattern" validate:"required"`
	Active   bool   `json:"active"`
	Priority int    `json:"priority"`
}

// FilterRule selects which incoming emails trigger a notification.
type FilterRule struct {
	ID        uuid.UUID `json:"id"`
	RuleType  string    `json:"ruleType"`
	Pattern   string    `json:"pattern"`
	Active    bool      `json:"active"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is one triggered notification in the history.
type Notification struct {
	ID              uuid.UUID  `json:"id"`
	SenderName      string     `json:"senderName"`
	SenderAddress   string     `json:"senderAddress"`
	Subject         string     `json:"subject"`
	Preview         string     `json:"preview"`
	DeliveryStatus  string     `json:"deliveryStatus"`
	ChannelType     string     `json:"channelType"`
	EmailReceivedAt *time.Time `json:"emailReceivedAt,omitempty"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Page is a slice of a paginated collection.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// HasNext returns true if another page follows.
func (p *Page[T]) HasNext() bool {
	return !p.Last && p.Number+1 < p.TotalPages
}
