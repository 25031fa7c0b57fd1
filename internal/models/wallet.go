package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string

const (
	TransactionDebit  TransactionType = "debit"
	TransactionCredit TransactionType = "credit"
)

// Wallet balances are integer minor units.
type Wallet struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Balance   int64              `json:"balance" bson:"balance"`
	Currency  string             `json:"currency" bson:"currency"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type WalletTransaction struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	WalletID     primitive.ObjectID `json:"wallet_id" bson:"wallet_id"`
	UserID       primitive.ObjectID `json:"user_id" bson:"user_id"`
	Type         TransactionType    `json:"type" bson:"type"`
	Amount       int64              `json:"amount" bson:"amount"`
	Reason       string             `json:"reason" bson:"reason"`
	Reference    string             `json:"reference,omitempty" bson:"reference,omitempty"`
	BalanceAfter int64              `json:"balance_after" bson:"balance_after"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}
