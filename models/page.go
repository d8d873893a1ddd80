package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page is one tenant: a published page whose owner can attach a chatbot.
// Nickname doubles as the tenant key for the vector store partition.
type Page struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Nickname      string             `bson:"nickname" json:"nickname" binding:"required,min=3,max=50"`
	UID           string             `bson:"uid" json:"uid"`
	Title         string             `bson:"title,omitempty" json:"title,omitempty"`
	ChatbotActive bool               `bson:"chatbot_active" json:"chatbot_active"`
	Chatbot       *ChatbotInfo       `bson:"chatbot,omitempty" json:"chatbot,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ChatbotInfo records what the owner last ingested.
type ChatbotInfo struct {
	Chunks       int       `bson:"chunks" json:"chunks"`
	SourceFile   string    `bson:"source_file,omitempty" json:"source_file,omitempty"`
	ActivatedAt  time.Time `bson:"activated_at" json:"activated_at"`
	LastIngestAt time.Time `bson:"last_ingest_at" json:"last_ingest_at"`
}
