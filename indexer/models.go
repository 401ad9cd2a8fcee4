package indexer

import (
	"time"

	"gorm.io/gorm"
)

// TransitionRecord mirrors one committed receipt.
type TransitionRecord struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement:false" json:"seq"`
	Timestamp  uint64    `gorm:"index" json:"timestamp"`
	Caller     string    `gorm:"index;size:96" json:"caller"`
	Op         string    `gorm:"index;size:64" json:"op"`
	EventCount int       `json:"eventCount"`
	IndexedAt  time.Time `json:"indexedAt"`
}

// EventRecord is one event of a receipt. Position is its emission index
// within the transition.
type EventRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Seq        uint64 `gorm:"uniqueIndex:idx_event_position"`
	Position   int    `gorm:"uniqueIndex:idx_event_position"`
	Type       string `gorm:"index;size:64"`
	OrderID    string `gorm:"index;size:66"`
	Attributes string `gorm:"type:text"`
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&TransitionRecord{}, &EventRecord{})
}
