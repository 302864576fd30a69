package model

import "time"

// Category groups listings. Listings reference it by id only.
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Label     string    `json:"label" gorm:"size:100;not null;index"`
	CreatedAt time.Time `json:"created_at"`
}
