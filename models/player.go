package models

// Player is the local mirror of an account owned by the account service.
// ID is the account service's identity; Login is what opponents see.
type Player struct {
	ID    string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Login string `gorm:"uniqueIndex;not null" json:"login"`

	Timestamps
}
