package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageCategory désigne la section du site où l'image est affichée
type ImageCategory string

const (
	CategoryHomeAnnouncement ImageCategory = "home_announcement"
	CategoryHomeMemories     ImageCategory = "home_memories"
	CategoryMemoriesPage     ImageCategory = "memories_page"
)

// ImageCategories liste les catégories acceptées
var ImageCategories = []ImageCategory{
	CategoryHomeAnnouncement,
	CategoryHomeMemories,
	CategoryMemoriesPage,
}

// ParseImageCategory valide une catégorie brute
func ParseImageCategory(raw string) (ImageCategory, bool) {
	for _, c := range ImageCategories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// Image représente une image gérée depuis le panneau admin
type Image struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	URL        string             `json:"url" bson:"url"`
	ExternalID string             `json:"-" bson:"public_id"`
	Category   ImageCategory      `json:"category" bson:"category"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
}
