package domain

import "context"

// DeliveryTier is which channels an alert's owner is entitled to. It is
// decided by the caller from the user record, never by the dispatcher.
type DeliveryTier string

const (
	// TierPremium places a voice call, falling back to text on failure.
	TierPremium DeliveryTier = "premium"
	// TierBasic delivers on the text channel only.
	TierBasic DeliveryTier = "basic"
)

// Tier classifies a user: voice delivery needs a phone number on file
// and a positive credit balance.
func (u *User) Tier() DeliveryTier {
	if u.PhoneNumber != "" && u.Credits > 0 {
		return TierPremium
	}
	return TierBasic
}

type VoiceChannel interface {
	Call(ctx context.Context, to, message string) error
}

type TextChannel interface {
	Send(ctx context.Context, chatID int64, message string) error
}
