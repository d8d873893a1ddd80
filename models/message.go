package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessagesResponse lists a page's most recent chat turns, newest first.
type MessagesResponse struct {
	OK       bool      `json:"ok"`
	Nickname string    `json:"nickname"`
	Messages []Message `json:"messages"`
}

// Message is one answered visitor question, persisted for the owner's
// conversation log.
type Message struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Nickname     string             `bson:"nickname" json:"nickname"`
	Question     string             `bson:"question" json:"question"`
	Answer       string             `bson:"answer" json:"answer"`
	PromptTokens int                `bson:"prompt_tokens" json:"prompt_tokens"`
	OutputTokens int                `bson:"output_tokens" json:"output_tokens"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}
