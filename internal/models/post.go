// Package models contains the domain types shared by the store, the HTTP API
// and the polling client.
package models

import "time"

// Post is a top-level channel message. Replies are only populated by the
// store operations that attach them (GetPost, ListPostsFull).
type Post struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title     *string    `json:"title"`
	User      string     `gorm:"not null" json:"user"`
	Role      string     `gorm:"not null" json:"role"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time  `gorm:"not null;index" json:"timestamp"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	Replies   []Reply    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"replies"`
}

// PostSummary is the reduced shape returned by the summary listing. It keeps
// polling payloads small for consumers that only need to locate a post.
type PostSummary struct {
	ID      string  `json:"id"`
	Title   *string `json:"title"`
	Message string  `json:"message"`
}

// Summary returns the summary view of the post.
func (p *Post) Summary() PostSummary {
	return PostSummary{ID: p.ID, Title: p.Title, Message: p.Message}
}

// TitleOrEmpty dereferences the optional title.
func (p *Post) TitleOrEmpty() string {
	if p.Title == nil {
		return ""
	}
	return *p.Title
}
