package model

import (
	"time"
)

// SessionRecord is the audit row for one pairing. It never stores message content.
type SessionRecord struct {
	ID           string     `gorm:"size:64;primaryKey"`
	ParticipantA string     `gorm:"size:64;index;not null"`
	ParticipantB string     `gorm:"size:64;index;not null"`
	Initiator    string     `gorm:"size:64;not null"`
	Mode         string     `gorm:"size:16;not null"`
	Connected    bool       `gorm:"not null;default:false"`
	Reason       string     `gorm:"size:32"`
	CreatedAt    time.Time  `gorm:"not null;index"`
	EndedAt      *time.Time `gorm:"index"`
}
