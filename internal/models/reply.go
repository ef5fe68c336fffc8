package models

import "time"

// Reply is a thread reply scoped to exactly one Post.
type Reply struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string     `gorm:"type:varchar(36);not null;index" json:"post_id"`
	User      string     `gorm:"not null" json:"user"`
	Role      string     `gorm:"not null" json:"role"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time  `gorm:"not null;index" json:"timestamp"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}
