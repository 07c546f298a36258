package models

// Channel is a merchant payment destination (till or paybill number).
// At most one channel per owner has IsDefault set.
type Channel struct {
	// ID is the unique identifier for the channel (UUID format).
	ID string

	// DisplayID is the till/paybill number users see.
	DisplayID string

	// Name is a nickname for the channel.
	Name string

	OwnerID string

	// ExternalID is the platform's channel id, used to look up the
	// channel API key when sending payment prompts.
	ExternalID string

	IsDefault bool

	CreatedAt int64
}
