package ai

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrQuotaExceeded is returned when a page has spent its daily token budget.
var ErrQuotaExceeded = errors.New("daily token quota exceeded")

// DefaultDailyTokenLimit applies to pages whose owner never set a budget.
const DefaultDailyTokenLimit = 10000

// PageQuota tracks per-page daily Gemini token spend, reset at UTC midnight.
type PageQuota struct {
	Nickname        string    `bson:"nickname" json:"nickname"`
	DailyTokenLimit int       `bson:"daily_token_limit" json:"daily_token_limit"`
	TokensUsedToday int       `bson:"tokens_used_today" json:"tokens_used_today"`
	RequestsToday   int       `bson:"requests_today" json:"requests_today"`
	LastResetDate   time.Time `bson:"last_reset_date" json:"last_reset_date"`
	CreatedAt       time.Time `bson:"created_at" json:"-"`
	UpdatedAt       time.Time `bson:"updated_at" json:"-"`
}

// QuotaStore enforces per-page spend limits backed by Mongo, so every
// instance sees the same counters.
type QuotaStore struct {
	col *mongo.Collection
}

func NewQuotaStore(db *mongo.Database) *QuotaStore {
	return &QuotaStore{col: db.Collection("gemini_quotas")}
}

// Consume reserves estimatedTokens for the page, creating its quota document
// on first use. Returns ErrQuotaExceeded once the daily budget is spent; the
// counter rolls over at UTC midnight.
func (qs *QuotaStore) Consume(ctx context.Context, nickname string, estimatedTokens int) error {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Roll the window forward if the stored reset date is stale.
	_, err := qs.col.UpdateOne(ctx,
		bson.M{"nickname": nickname, "last_reset_date": bson.M{"$lt": today}},
		bson.M{"$set": bson.M{
			"tokens_used_today": 0,
			"requests_today":    0,
			"last_reset_date":   today,
			"updated_at":        now,
		}},
	)
	if err != nil {
		return err
	}

	var quota PageQuota
	err = qs.col.FindOne(ctx, bson.M{"nickname": nickname}).Decode(&quota)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		quota = PageQuota{
			Nickname:        nickname,
			DailyTokenLimit: DefaultDailyTokenLimit,
			LastResetDate:   today,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := qs.col.InsertOne(ctx, quota); err != nil {
			return err
		}
	}

	if quota.TokensUsedToday+estimatedTokens > quota.DailyTokenLimit {
		return ErrQuotaExceeded
	}

	_, err = qs.col.UpdateOne(ctx,
		bson.M{"nickname": nickname},
		bson.M{
			"$inc": bson.M{
				"tokens_used_today": estimatedTokens,
				"requests_today":    1,
			},
			"$set": bson.M{"updated_at": now},
		},
	)
	return err
}

// SetLimit sets a page's daily token budget, creating the document if needed.
func (qs *QuotaStore) SetLimit(ctx context.Context, nickname string, dailyLimit int) error {
	now := time.Now()
	_, err := qs.col.UpdateOne(ctx,
		bson.M{"nickname": nickname},
		bson.M{"$set": bson.M{
			"daily_token_limit": dailyLimit,
			"updated_at":        now,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Status returns the page's current quota document.
func (qs *QuotaStore) Status(ctx context.Context, nickname string) (*PageQuota, error) {
	var quota PageQuota
	if err := qs.col.FindOne(ctx, bson.M{"nickname": nickname}).Decode(&quota); err != nil {
		return nil, err
	}
	return &quota, nil
}
