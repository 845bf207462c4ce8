package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent models.
//
// Primary keys are vendor numeric identifiers: rows imported from the upstream
// API keep their original id verbatim, while locally created rows rely on the
// database autoincrement. Soft deletion is enabled everywhere because the
// frontend expects deleted resources to vanish from listings while references
// (for example notifications pointing at alerts) stay resolvable.
type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
