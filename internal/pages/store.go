package pages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pages-chatbot-platform/models"
)

// Store reads and mutates page documents. Pages are created by the separate
// site builder; this service only flips chatbot state on them.
type Store struct {
	pages    *mongo.Collection
	messages *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		pages:    db.Collection("pages"),
		messages: db.Collection("messages"),
	}
}

// FindByNickname returns the page or (nil, nil) when no page exists.
func (s *Store) FindByNickname(ctx context.Context, nickname string) (*models.Page, error) {
	var page models.Page
	err := s.pages.FindOne(ctx, bson.M{"nickname": nickname}).Decode(&page)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find page %q: %w", nickname, err)
	}
	return &page, nil
}

// SetChatbotActive flips the page's chatbot flag. A non-nil info replaces the
// stored chatbot sub-document; nil clears it.
func (s *Store) SetChatbotActive(ctx context.Context, nickname string, active bool, info *models.ChatbotInfo) error {
	update := bson.M{
		"chatbot_active": active,
		"updated_at":     time.Now(),
	}
	if info != nil {
		update["chatbot"] = info
	} else {
		update["chatbot"] = nil
	}

	res, err := s.pages.UpdateOne(ctx, bson.M{"nickname": nickname}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("update page %q: %w", nickname, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update page %q: no such page", nickname)
	}
	return nil
}

// SaveMessage appends one answered question to the page's conversation log.
func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("save message for %q: %w", msg.Nickname, err)
	}
	return nil
}

// RecentMessages returns the newest messages for a page, newest first.
func (s *Store) RecentMessages(ctx context.Context, nickname string, limit int64) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)
	cur, err := s.messages.Find(ctx, bson.M{"nickname": nickname}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages for %q: %w", nickname, err)
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages for %q: %w", nickname, err)
	}
	return msgs, nil
}
