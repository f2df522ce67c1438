package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// PersistedState is the session state saved between runs.
// This is a singleton model (only one row should exist)
type PersistedState struct {
	BaseModel
	Status       string    `json:"status" gorm:"type:varchar(16);not null;default:'idle'"`
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	SideMenuOpen bool      `json:"side_menu_open" gorm:"not null;default:false"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// NotificationRecord is a notification delivered through the worker queue
// or recorded directly by the CLI
type NotificationRecord struct {
	BaseModel
	Message string `json:"message" gorm:"type:text;not null"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&PersistedState{}, &NotificationRecord{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
