// Package ledger implements the authorization engine: idempotent command
// processing, balance checking under concurrency, double-entry ledger
// posting, and transactional outbox enqueue, executed as a single atomic
// transaction per spec.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	pgstore "github.com/vortex-fintech/payments-ledger/internal/storage/postgres"
	"github.com/vortex-fintech/payments-ledger/internal/idgen"
	"github.com/vortex-fintech/payments-ledger/internal/model"
	apierr "github.com/vortex-fintech/payments-ledger/pkg/apierr"
	eventdomain "github.com/vortex-fintech/payments-ledger/pkg/eventdomain"

	"github.com/vortex-fintech/payments-ledger/internal/broker"
)

// outboxProducer identifies this service as the event producer in every
// envelope it writes to the outbox.
const outboxProducer = "payments-ledger"

// outboxEvent wraps a domain payload in the common event envelope (name,
// UTC timestamp, id, schema version) before it is serialized into an
// OutboxRecord's Payload column.
type outboxEvent struct {
	eventdomain.BaseEvent
	Data any `json:"data"`
}

func newOutboxPayload(eventType string, data any) ([]byte, error) {
	base, err := eventdomain.NewBaseEvent(eventType, outboxProducer)
	if err != nil {
		return nil, fmt.Errorf("build event envelope: %w", err)
	}
	return json.Marshal(outboxEvent{BaseEvent: base, Data: data})
}

// ErrTransient signals an infrastructure-level race (a concurrent writer
// already advanced the balance version, or the same idempotency key is
// being processed elsewhere right now). The caller retries with the same
// idempotency key; no domain state was persisted.
var ErrTransient = errors.New("ledger: transient failure, retry with same idempotency key")

type Status string

const (
	StatusAuthorized Status = "AUTHORIZED"
	StatusDeclined   Status = "DECLINED"
	StatusDuplicate  Status = "DUPLICATE"
)

type DomainError struct {
	Code    model.DeclineCode
	Message string
}

// Command is the caller-supplied authorization request.
type Command struct {
	IdempotencyKey string
	PayerID        string
	PayeeID        string
	AmountMinor    int64
	Currency       string
	Description    string
}

// Result is the outcome of one Authorize call. Never surfaces a
// storage-level error to the caller except as ErrTransient; all domain
// outcomes are encoded here.
type Result struct {
	PaymentID   string
	Status      Status
	Error       *DomainError
	ProcessedAt time.Time
}

// responseSnapshot mirrors what a replayed duplicate returns to the client.
type responseSnapshot struct {
	PaymentID   string            `json:"payment_id"`
	Status      Status            `json:"status"`
	Error       *DomainError      `json:"error,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

const idempotencyTTL = 24 * time.Hour

type paymentIDTag struct{}
type ledgerEntryIDTag struct{}
type outboxIDTag struct{}

// Engine is the authorization engine. Publication to the broker is the
// outbox worker's job; the engine only enqueues the outbox row within the
// same transaction that posts the ledger.
type Engine struct {
	store Store
	ttl   time.Duration
}

func New(store Store) *Engine {
	return &Engine{store: store, ttl: idempotencyTTL}
}

// Authorize runs the full validate → lock → post-ledger → enqueue-event →
// commit procedure in a single transaction.
func (e *Engine) Authorize(ctx context.Context, cmd Command) (Result, error) {
	if err := validateRequest(cmd); err != nil {
		return Result{}, err
	}

	var result Result
	err := e.store.WithTx(ctx, func(run dbpg.Runner) error {
		rec, claimed, err := e.store.ClaimIdempotencyKey(ctx, run, cmd.IdempotencyKey, e.ttl)
		if err != nil {
			return fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			if rec == nil {
				return ErrTransient
			}
			switch rec.Status {
			case model.IdempotencyCompleted, model.IdempotencyFailed:
				snap, err := decodeSnapshot(rec.ResponseSnapshot)
				if err != nil {
					return fmt.Errorf("decode idempotency snapshot: %w", err)
				}
				snap.Status = StatusDuplicate
				result = Result{
					PaymentID:   snap.PaymentID,
					Status:      StatusDuplicate,
					Error:       snap.Error,
					ProcessedAt: snap.ProcessedAt,
				}
				return nil
			default: // PENDING: another attempt with this key is in flight.
				return ErrTransient
			}
		}

		res, err := e.process(ctx, run, cmd)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransient) {
			return Result{}, ErrTransient
		}
		return Result{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return result, nil
}

// process performs the domain validations, the locked balance mutation or
// decline recording, the outbox enqueue, and the idempotency finalize, all
// within the caller's transaction.
func (e *Engine) process(ctx context.Context, run dbpg.Runner, cmd Command) (Result, error) {
	now := time.Now().UTC()

	if declErr := validateAmountAndAccounts(cmd); declErr != nil {
		return e.decline(ctx, run, cmd, *declErr, now)
	}

	payerAccount, err := e.store.GetAccount(ctx, run, cmd.PayerID)
	if err != nil {
		if errors.Is(err, pgstore.ErrNotFound) {
			return e.decline(ctx, run, cmd, DomainError{
				Code:    model.DeclineAccountNotFound,
				Message: "payer account not found",
			}, now)
		}
		return Result{}, fmt.Errorf("get payer account: %w", err)
	}
	payeeAccount, err := e.store.GetAccount(ctx, run, cmd.PayeeID)
	if err != nil {
		if errors.Is(err, pgstore.ErrNotFound) {
			return e.decline(ctx, run, cmd, DomainError{
				Code:    model.DeclineAccountNotFound,
				Message: "payee account not found",
			}, now)
		}
		return Result{}, fmt.Errorf("get payee account: %w", err)
	}
	if payerAccount.Status != model.AccountActive {
		return e.decline(ctx, run, cmd, DomainError{
			Code:    model.DeclineAccountNotFound,
			Message: "payer account is not active",
		}, now)
	}
	if payeeAccount.Status != model.AccountActive {
		return e.decline(ctx, run, cmd, DomainError{
			Code:    model.DeclineAccountNotFound,
			Message: "payee account is not active",
		}, now)
	}
	if payerAccount.Currency != payeeAccount.Currency || payerAccount.Currency != cmd.Currency {
		return e.decline(ctx, run, cmd, DomainError{
			Code:    model.DeclineCurrencyMismatch,
			Message: "payer, payee, and request currencies must match",
		}, now)
	}

	payerID, payeeID := cmd.PayerID, cmd.PayeeID
	first, second := payerID, payeeID
	if second < first {
		first, second = second, first
	}

	firstBal, err := e.store.GetBalanceForUpdate(ctx, run, first)
	if err != nil {
		return Result{}, fmt.Errorf("lock balance %s: %w", first, err)
	}
	secondBal, err := e.store.GetBalanceForUpdate(ctx, run, second)
	if err != nil {
		return Result{}, fmt.Errorf("lock balance %s: %w", second, err)
	}

	payerBal, payeeBal := firstBal, secondBal
	if payerID != first {
		payerBal, payeeBal = secondBal, firstBal
	}

	// Authoritative check: funds are checked only here, under lock, since the unlocked
	// account/currency reads above could have raced a concurrent mutation.
	if payerBal.AvailableMinor < cmd.AmountMinor {
		return e.decline(ctx, run, cmd, DomainError{
			Code:    model.DeclineInsufficientFunds,
			Message: "insufficient funds",
		}, now)
	}

	payerNew := payerBal.AvailableMinor - cmd.AmountMinor
	payeeNew := payeeBal.AvailableMinor + cmd.AmountMinor

	paymentID, err := newID[paymentIDTag]()
	if err != nil {
		return Result{}, err
	}

	payment := model.Payment{
		ID:             paymentID,
		IdempotencyKey: cmd.IdempotencyKey,
		PayerAccountID: cmd.PayerID,
		PayeeAccountID: cmd.PayeeID,
		AmountMinor:    cmd.AmountMinor,
		Currency:       cmd.Currency,
		Status:         model.PaymentAuthorized,
		Description:    cmd.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.InsertPayment(ctx, run, payment); err != nil {
		return Result{}, fmt.Errorf("insert payment: %w", err)
	}

	debitID, err := newID[ledgerEntryIDTag]()
	if err != nil {
		return Result{}, err
	}
	if err := e.store.InsertLedgerEntry(ctx, run, model.LedgerEntry{
		ID:                debitID,
		PaymentID:         paymentID,
		AccountID:         cmd.PayerID,
		EntryType:         model.EntryDebit,
		AmountMinor:       cmd.AmountMinor,
		Currency:          cmd.Currency,
		BalanceAfterMinor: payerNew,
		CreatedAt:         now,
	}); err != nil {
		return Result{}, fmt.Errorf("insert debit entry: %w", err)
	}

	creditID, err := newID[ledgerEntryIDTag]()
	if err != nil {
		return Result{}, err
	}
	if err := e.store.InsertLedgerEntry(ctx, run, model.LedgerEntry{
		ID:                creditID,
		PaymentID:         paymentID,
		AccountID:         cmd.PayeeID,
		EntryType:         model.EntryCredit,
		AmountMinor:       cmd.AmountMinor,
		Currency:          cmd.Currency,
		BalanceAfterMinor: payeeNew,
		CreatedAt:         now,
	}); err != nil {
		return Result{}, fmt.Errorf("insert credit entry: %w", err)
	}

	ok, err := e.store.UpdateBalance(ctx, run, cmd.PayerID, payerNew, payerBal.Version)
	if err != nil {
		return Result{}, fmt.Errorf("update payer balance: %w", err)
	}
	if !ok {
		return Result{}, ErrTransient
	}
	ok, err = e.store.UpdateBalance(ctx, run, cmd.PayeeID, payeeNew, payeeBal.Version)
	if err != nil {
		return Result{}, fmt.Errorf("update payee balance: %w", err)
	}
	if !ok {
		return Result{}, ErrTransient
	}

	outboxPayload, err := newOutboxPayload(broker.EventPaymentAuthorized, map[string]any{
		"payment_id":   paymentID,
		"payer_id":     cmd.PayerID,
		"payee_id":     cmd.PayeeID,
		"amount_minor": cmd.AmountMinor,
		"currency":     cmd.Currency,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode outbox payload: %w", err)
	}
	obID, err := newID[outboxIDTag]()
	if err != nil {
		return Result{}, err
	}
	if err := e.store.InsertOutboxRecord(ctx, run, model.OutboxRecord{
		ID:            obID,
		AggregateType: "Payment",
		AggregateID:   paymentID,
		EventType:     broker.EventPaymentAuthorized,
		Payload:       outboxPayload,
		CreatedAt:     now,
	}); err != nil {
		return Result{}, fmt.Errorf("insert outbox record: %w", err)
	}

	result := Result{
		PaymentID:   paymentID,
		Status:      StatusAuthorized,
		ProcessedAt: now,
	}
	if err := e.finalizeIdempotency(ctx, run, cmd.IdempotencyKey, paymentID, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// decline records a Payment with status=DECLINED, enqueues a PaymentDeclined
// event, and completes the idempotency record — the decline itself is the
// idempotent outcome. Balances and ledger entries are untouched.
func (e *Engine) decline(ctx context.Context, run dbpg.Runner, cmd Command, declErr DomainError, now time.Time) (Result, error) {
	paymentID, err := newID[paymentIDTag]()
	if err != nil {
		return Result{}, err
	}

	payment := model.Payment{
		ID:             paymentID,
		IdempotencyKey: cmd.IdempotencyKey,
		PayerAccountID: cmd.PayerID,
		PayeeAccountID: cmd.PayeeID,
		AmountMinor:    cmd.AmountMinor,
		Currency:       cmd.Currency,
		Status:         model.PaymentDeclined,
		Description:    cmd.Description,
		ErrorCode:      string(declErr.Code),
		ErrorMessage:   declErr.Message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.InsertPayment(ctx, run, payment); err != nil {
		return Result{}, fmt.Errorf("insert declined payment: %w", err)
	}

	outboxPayload, err := newOutboxPayload(broker.EventPaymentDeclined, map[string]any{
		"payment_id":    paymentID,
		"payer_id":      cmd.PayerID,
		"payee_id":      cmd.PayeeID,
		"amount_minor":  cmd.AmountMinor,
		"currency":      cmd.Currency,
		"error_code":    declErr.Code,
		"error_message": declErr.Message,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode outbox payload: %w", err)
	}
	obID, err := newID[outboxIDTag]()
	if err != nil {
		return Result{}, err
	}
	if err := e.store.InsertOutboxRecord(ctx, run, model.OutboxRecord{
		ID:            obID,
		AggregateType: "Payment",
		AggregateID:   paymentID,
		EventType:     broker.EventPaymentDeclined,
		Payload:       outboxPayload,
		CreatedAt:     now,
	}); err != nil {
		return Result{}, fmt.Errorf("insert outbox record: %w", err)
	}

	result := Result{
		PaymentID:   paymentID,
		Status:      StatusDeclined,
		Error:       &declErr,
		ProcessedAt: now,
	}
	if err := e.finalizeIdempotency(ctx, run, cmd.IdempotencyKey, paymentID, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (e *Engine) finalizeIdempotency(ctx context.Context, run dbpg.Runner, key, paymentID string, result Result) error {
	snapshot, err := json.Marshal(responseSnapshot{
		PaymentID:   result.PaymentID,
		Status:      result.Status,
		Error:       result.Error,
		ProcessedAt: result.ProcessedAt,
	})
	if err != nil {
		return fmt.Errorf("encode idempotency snapshot: %w", err)
	}
	if err := e.store.CompleteIdempotencyKey(ctx, run, key, paymentID, model.IdempotencyCompleted, snapshot); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// validateRequest enforces the transport-boundary checks: missing required
// fields never touch the database.
func validateRequest(cmd Command) error {
	fields := map[string]string{}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		fields["idempotency_key"] = "required"
	}
	if strings.TrimSpace(cmd.PayerID) == "" {
		fields["payer_account_id"] = "required"
	}
	if strings.TrimSpace(cmd.PayeeID) == "" {
		fields["payee_account_id"] = "required"
	}
	if strings.TrimSpace(cmd.Currency) == "" {
		fields["currency"] = "required"
	}
	if len(fields) > 0 {
		return apierr.ValidationFields(fields)
	}
	return nil
}

// validateAmountAndAccounts runs the two domain checks that need no storage
// access (1, 2). Checks 3-5 (account existence/active, currency match)
// follow once the accounts are loaded, and check 6 (balance) runs once,
// under the balance row locks in process; there is no unlocked pre-check
// of funds.
func validateAmountAndAccounts(cmd Command) *DomainError {
	if cmd.AmountMinor <= 0 {
		return &DomainError{Code: model.DeclineInvalidAmount, Message: "amount_minor must be positive"}
	}
	if cmd.PayerID == cmd.PayeeID {
		return &DomainError{Code: model.DeclineSameAccount, Message: "payer and payee must differ"}
	}
	return nil
}

func decodeSnapshot(raw []byte) (responseSnapshot, error) {
	var snap responseSnapshot
	if len(raw) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return responseSnapshot{}, err
	}
	return snap, nil
}

func newID[T any]() (string, error) {
	id, err := idgen.NewID[T]()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
