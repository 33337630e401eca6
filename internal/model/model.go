// Package model holds the persisted entities shared by the authorization
// engine, the outbox worker, and the read paths.
package model

import "time"

type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "AUTHORIZED"
	PaymentDeclined   PaymentStatus = "DECLINED"
)

type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

type IdempotencyStatus string

const (
	IdempotencyPending   IdempotencyStatus = "PENDING"
	IdempotencyCompleted IdempotencyStatus = "COMPLETED"
	IdempotencyFailed    IdempotencyStatus = "FAILED"
)

// DeclineCode enumerates the domain decline reasons from §4.1.
type DeclineCode string

const (
	DeclineInsufficientFunds DeclineCode = "INSUFFICIENT_FUNDS"
	DeclineAccountNotFound   DeclineCode = "ACCOUNT_NOT_FOUND"
	DeclineInvalidAmount     DeclineCode = "INVALID_AMOUNT"
	DeclineSameAccount       DeclineCode = "SAME_ACCOUNT"
	DeclineCurrencyMismatch  DeclineCode = "CURRENCY_MISMATCH"
)

type Account struct {
	ID        string
	OwnerID   string
	Currency  string
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AccountBalance struct {
	AccountID      string
	AvailableMinor int64
	PendingMinor   int64
	Currency       string
	Version        int64
}

type Payment struct {
	ID             string
	IdempotencyKey string
	PayerAccountID string
	PayeeAccountID string
	AmountMinor    int64
	Currency       string
	Status         PaymentStatus
	Description    string
	ErrorCode      string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type LedgerEntry struct {
	ID                string
	PaymentID         string
	AccountID         string
	EntryType         EntryType
	AmountMinor       int64
	Currency          string
	BalanceAfterMinor int64
	CreatedAt         time.Time
}

// IdempotencyRecord tracks the outcome of one client-supplied idempotency key.
// ResponseSnapshot is an opaque JSON blob mirroring the response the client
// originally received, replayed verbatim on a duplicate request.
type IdempotencyRecord struct {
	Key              string
	PaymentID        string
	ResponseSnapshot []byte
	Status           IdempotencyStatus
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

type OutboxRecord struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	RetryCount    int
}
