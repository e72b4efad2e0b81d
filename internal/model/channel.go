package model

import "time"

// SponsorChannel is one entry of the ordered sponsor list.
// Handle keeps the identifier exactly as the admin entered it,
// Normalized is the handle without the leading "@" and carries uniqueness.
type SponsorChannel struct {
	ID         uint `gorm:"primaryKey"`
	Position   int  `gorm:"index"`
	Handle     string
	Normalized string `gorm:"uniqueIndex"`
	CreatedAt  time.Time
}

// Meta stores small key/value flags such as whether the channel list was seeded.
type Meta struct {
	Name  string `gorm:"primaryKey"`
	Value string
}
