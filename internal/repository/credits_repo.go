package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pomelo/internal/model"
)

// CreditsRepo 用户积分仓库
type CreditsRepo struct {
	collection *mongo.Collection
}

// NewCreditsRepo 创建积分仓库
func NewCreditsRepo(db *mongo.Database) *CreditsRepo {
	return &CreditsRepo{
		collection: db.Collection("user_chat_credits"),
	}
}

// FindByUserID 查询用户积分账户
func (r *CreditsRepo) FindByUserID(ctx context.Context, userID string) (*model.UserCredits, error) {
	var credits model.UserCredits
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&credits)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &credits, nil
}

// UpdateCredits 覆盖余额（扣费在 service 层算好新值后落库）
func (r *CreditsRepo) UpdateCredits(ctx context.Context, userID string, credits primitive.Decimal128) error {
	update := bson.M{"$set": bson.M{"credits": credits}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Create 创建积分账户（注册时发放初始积分）
func (r *CreditsRepo) Create(ctx context.Context, userID string, credits primitive.Decimal128) error {
	_, err := r.collection.InsertOne(ctx, &model.UserCredits{
		UserID:  userID,
		Credits: credits,
	})
	return err
}
