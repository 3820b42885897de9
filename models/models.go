package models

import (
	"time"
)

// User is hard-deleted so the database cascades its recipes and likes.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Recipe struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index" json:"user_id"` // nil when the author is unknown
	Author       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Ingredients  string    `gorm:"type:text;not null" json:"ingredients"`
	Instructions string    `gorm:"type:text;not null" json:"instructions"`
	Image        string    `gorm:"type:varchar(255)" json:"image"` // object name in the image bucket
	PublishedAt  time.Time `gorm:"not null" json:"published_at"`
	LikeCount    uint      `json:"like_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthoredBy reports whether userID wrote the recipe.
func (r *Recipe) AuthoredBy(userID uint) bool {
	return r.UserID != nil && *r.UserID == userID
}

// AuthorName is empty for recipes without a known author.
func (r *Recipe) AuthorName() string {
	if r.Author == nil {
		return ""
	}
	return r.Author.Username
}

// Like records that a user saved a recipe. The composite primary key keeps one row per pair.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RecipeID  uint      `gorm:"primaryKey;autoIncrement:false" json:"recipe_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
