package model

import "time"

// Peer uses an autoincrement surrogate key so List can return records
// in insertion order regardless of backend.
type Peer struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement"`
	PeerID    string    `gorm:"size:64;uniqueIndex;not null"`
	Name      string    `gorm:"size:255;not null"`
	Address   string    `gorm:"size:64;not null"`
	Status    string    `gorm:"size:32;not null"`
	LastSeen  time.Time `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Session struct {
	ID        string    `gorm:"size:64;primaryKey"`
	PeerID    string    `gorm:"size:64;index;not null"`
	Status    string    `gorm:"size:32;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"index;not null"`
}

// Metadata holds store-level keys such as the local peer id.
type Metadata struct {
	Key   string `gorm:"size:64;primaryKey"`
	Value string `gorm:"size:255;not null"`
}
