// Package grpcapi adapts internal/ledger and the read-only storage paths to
// the PaymentsService RPC surface: request/response translation, error-code
// mapping, and nothing else — no domain logic lives here.
package grpcapi

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/vortex-fintech/payments-ledger/api/paymentspb"
	"github.com/vortex-fintech/payments-ledger/internal/ledger"
	"github.com/vortex-fintech/payments-ledger/internal/model"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	pgstore "github.com/vortex-fintech/payments-ledger/internal/storage/postgres"
	apierr "github.com/vortex-fintech/payments-ledger/pkg/apierr"
)

// Authorizer is the capability this service depends on for AuthorizePayment.
// Satisfied by *internal/ledger.Engine.
type Authorizer interface {
	Authorize(ctx context.Context, cmd ledger.Command) (ledger.Result, error)
}

// Reader is the capability this service depends on for the two read RPCs.
// Satisfied by *internal/storage/postgres.Store.
type Reader interface {
	RunnerFromPool() dbpg.Runner
	GetPayment(ctx context.Context, run dbpg.Runner, id string) (*model.Payment, error)
	GetBalance(ctx context.Context, run dbpg.Runner, accountID string) (*model.AccountBalance, error)
}

// Server implements paymentspb.PaymentsServiceServer.
type Server struct {
	paymentspb.UnimplementedPaymentsServiceServer
	authorizer Authorizer
	reader     Reader
}

func New(authorizer Authorizer, reader Reader) *Server {
	return &Server{authorizer: authorizer, reader: reader}
}

// AuthorizePayment maps directly to the ledger engine's single-transaction
// authorization procedure. Every domain outcome (authorized, declined,
// duplicate) is OK at the transport level; only malformed requests, the
// rate limiter, infra faults, and shutdown drain use other codes.
func (s *Server) AuthorizePayment(ctx context.Context, req *paymentspb.AuthorizePaymentRequest) (*paymentspb.AuthorizePaymentResponse, error) {
	cmd := ledger.Command{
		IdempotencyKey: req.IdempotencyKey,
		PayerID:        req.PayerAccountID,
		PayeeID:        req.PayeeAccountID,
		AmountMinor:    req.AmountCents,
		Currency:       req.Currency,
		Description:    req.Description,
	}

	result, err := s.authorizer.Authorize(ctx, cmd)
	if err != nil {
		if errors.Is(err, ledger.ErrTransient) {
			return nil, apierr.New("authorization could not complete, retry with the same idempotency key", codes.Unavailable, nil)
		}
		return nil, err
	}

	return &paymentspb.AuthorizePaymentResponse{
		PaymentID:   result.PaymentID,
		Status:      toWireStatus(result.Status),
		Error:       toWireError(result.Error),
		ProcessedAt: result.ProcessedAt.UTC().Format(time.RFC3339),
	}, nil
}

// GetPayment is a plain read. Not rate-limited: the admission gate's
// Applies predicate admits only AuthorizePayment into the limiter.
func (s *Server) GetPayment(ctx context.Context, req *paymentspb.GetPaymentRequest) (*paymentspb.Payment, error) {
	if req.PaymentID == "" {
		return nil, apierr.ValidationFields(map[string]string{"payment_id": "required"})
	}

	p, err := s.reader.GetPayment(ctx, s.reader.RunnerFromPool(), req.PaymentID)
	if err != nil {
		if errors.Is(err, pgstore.ErrNotFound) {
			return nil, apierr.NotFoundWith("payment_id", req.PaymentID)
		}
		return nil, err
	}

	out := &paymentspb.Payment{
		ID:             p.ID,
		IdempotencyKey: p.IdempotencyKey,
		PayerAccountID: p.PayerAccountID,
		PayeeAccountID: p.PayeeAccountID,
		AmountCents:    p.AmountMinor,
		Currency:       p.Currency,
		Status:         string(p.Status),
		Description:    p.Description,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.ErrorCode != "" {
		out.Error = &paymentspb.DomainError{Code: p.ErrorCode, Message: p.ErrorMessage}
	}
	return out, nil
}

func (s *Server) GetAccountBalance(ctx context.Context, req *paymentspb.GetAccountBalanceRequest) (*paymentspb.AccountBalance, error) {
	if req.AccountID == "" {
		return nil, apierr.ValidationFields(map[string]string{"account_id": "required"})
	}

	b, err := s.reader.GetBalance(ctx, s.reader.RunnerFromPool(), req.AccountID)
	if err != nil {
		if errors.Is(err, pgstore.ErrNotFound) {
			return nil, apierr.NotFoundWith("account_id", req.AccountID)
		}
		return nil, err
	}

	return &paymentspb.AccountBalance{
		AccountID:      b.AccountID,
		AvailableCents: b.AvailableMinor,
		PendingCents:   b.PendingMinor,
		Currency:       b.Currency,
	}, nil
}

func toWireStatus(s ledger.Status) paymentspb.PaymentStatus {
	switch s {
	case ledger.StatusAuthorized:
		return paymentspb.PaymentStatusAuthorized
	case ledger.StatusDeclined:
		return paymentspb.PaymentStatusDeclined
	case ledger.StatusDuplicate:
		return paymentspb.PaymentStatusDuplicate
	default:
		return paymentspb.PaymentStatusUnspecified
	}
}

func toWireError(e *ledger.DomainError) *paymentspb.DomainError {
	if e == nil {
		return nil
	}
	return &paymentspb.DomainError{Code: string(e.Code), Message: e.Message}
}
