package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type walletRepository struct {
	wallets      *mongo.Collection
	transactions *mongo.Collection
	currency     string
}

func NewWalletRepository(db *mongo.Database, currency string) interfaces.WalletRepository {
	return &walletRepository{
		wallets:      db.Collection("wallets"),
		transactions: db.Collection("wallet_transactions"),
		currency:     currency,
	}
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID}
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":    userID,
		"balance":    int64(0),
		"currency":   r.currency,
		"created_at": now,
		"updated_at": now,
	}}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var wallet models.Wallet
	if err := r.wallets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&wallet); err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}
	return &wallet, nil
}

// Debit is guarded by a balance condition in the filter, so two concurrent
// debits can never overdraw.
func (r *walletRepository) Debit(ctx context.Context, userID primitive.ObjectID, amount int64, reason, reference string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive")
	}

	wallet, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":     wallet.ID,
		"balance": bson.M{"$gte": amount},
	}
	update := bson.M{
		"$inc": bson.M{"balance": -amount},
		"$set": bson.M{"updated_at": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Wallet
	err = r.wallets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	return r.recordTransaction(ctx, &updated, models.TransactionDebit, amount, reason, reference)
}

func (r *walletRepository) Credit(ctx context.Context, userID primitive.ObjectID, amount int64, reason, reference string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive")
	}

	wallet, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$inc": bson.M{"balance": amount},
		"$set": bson.M{"updated_at": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Wallet
	if err := r.wallets.FindOneAndUpdate(ctx, bson.M{"_id": wallet.ID}, update, opts).Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}

	return r.recordTransaction(ctx, &updated, models.TransactionCredit, amount, reason, reference)
}

func (r *walletRepository) recordTransaction(ctx context.Context, wallet *models.Wallet, txType models.TransactionType, amount int64, reason, reference string) (*models.WalletTransaction, error) {
	tx := &models.WalletTransaction{
		ID:           primitive.NewObjectID(),
		WalletID:     wallet.ID,
		UserID:       wallet.UserID,
		Type:         txType,
		Amount:       amount,
		Reason:       reason,
		Reference:    reference,
		BalanceAfter: wallet.Balance,
		CreatedAt:    time.Now(),
	}

	if _, err := r.transactions.InsertOne(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record wallet transaction: %w", err)
	}
	return tx, nil
}

func (r *walletRepository) GetTransactions(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.WalletTransaction, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.transactions.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	cursor, err := r.transactions.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txs []*models.WalletTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode wallet transactions: %w", err)
	}
	return txs, total, nil
}
