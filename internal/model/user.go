package model

import "time"

// User is a registry row: one per Telegram user that ever contacted the bot.
type User struct {
	ID       int64 `gorm:"primaryKey;autoIncrement:false"`
	JoinedAt time.Time
}
