package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Verified     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type BookModel struct {
	ID              string    `gorm:"primaryKey"`
	Title           string    `gorm:"uniqueIndex;not null"`
	Author          string    `gorm:"not null"`
	Price           float64   `gorm:"not null"`
	PublicationDate time.Time `gorm:"type:date;not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}
