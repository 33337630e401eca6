package grpcapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vortex-fintech/payments-ledger/api/paymentspb"
	"github.com/vortex-fintech/payments-ledger/internal/ledger"
	"github.com/vortex-fintech/payments-ledger/internal/model"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	pgstore "github.com/vortex-fintech/payments-ledger/internal/storage/postgres"
)

type fakeAuthorizer struct {
	result ledger.Result
	err    error
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, cmd ledger.Command) (ledger.Result, error) {
	return f.result, f.err
}

type fakeReader struct {
	payment *model.Payment
	balance *model.AccountBalance
	err     error
}

func (f *fakeReader) RunnerFromPool() dbpg.Runner { return nil }

func (f *fakeReader) GetPayment(ctx context.Context, run dbpg.Runner, id string) (*model.Payment, error) {
	return f.payment, f.err
}

func (f *fakeReader) GetBalance(ctx context.Context, run dbpg.Runner, accountID string) (*model.AccountBalance, error) {
	return f.balance, f.err
}

func TestAuthorizePayment_MapsAuthorizedResult(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := New(&fakeAuthorizer{result: ledger.Result{
		PaymentID:   "pay-1",
		Status:      ledger.StatusAuthorized,
		ProcessedAt: now,
	}}, &fakeReader{})

	resp, err := srv.AuthorizePayment(context.Background(), &paymentspb.AuthorizePaymentRequest{
		IdempotencyKey: "key-1", PayerAccountID: "a", PayeeAccountID: "b", AmountCents: 100, Currency: "USD",
	})

	require.NoError(t, err)
	require.Equal(t, "pay-1", resp.PaymentID)
	require.Equal(t, paymentspb.PaymentStatusAuthorized, resp.Status)
	require.Nil(t, resp.Error)
	require.Equal(t, "2026-01-02T03:04:05Z", resp.ProcessedAt)
}

func TestAuthorizePayment_MapsDeclinedResult(t *testing.T) {
	srv := New(&fakeAuthorizer{result: ledger.Result{
		PaymentID: "pay-2",
		Status:    ledger.StatusDeclined,
		Error:     &ledger.DomainError{Code: model.DeclineInsufficientFunds, Message: "insufficient funds"},
	}}, &fakeReader{})

	resp, err := srv.AuthorizePayment(context.Background(), &paymentspb.AuthorizePaymentRequest{
		IdempotencyKey: "key-2", PayerAccountID: "a", PayeeAccountID: "b", AmountCents: 100, Currency: "USD",
	})

	require.NoError(t, err)
	require.Equal(t, paymentspb.PaymentStatusDeclined, resp.Status)
	require.NotNil(t, resp.Error)
	require.Equal(t, string(model.DeclineInsufficientFunds), resp.Error.Code)
}

func TestAuthorizePayment_TransientErrorMapsToUnavailable(t *testing.T) {
	srv := New(&fakeAuthorizer{err: ledger.ErrTransient}, &fakeReader{})

	_, err := srv.AuthorizePayment(context.Background(), &paymentspb.AuthorizePaymentRequest{})

	require.Error(t, err)
	st, ok := status.FromError(errToGRPCStatus(err))
	require.True(t, ok)
	require.Equal(t, codes.Unavailable, st.Code())
}

func TestGetPayment_MissingIDIsValidationError(t *testing.T) {
	srv := New(&fakeAuthorizer{}, &fakeReader{})
	_, err := srv.GetPayment(context.Background(), &paymentspb.GetPaymentRequest{})
	require.Error(t, err)
}

func TestGetPayment_NotFoundMapsToNotFound(t *testing.T) {
	srv := New(&fakeAuthorizer{}, &fakeReader{err: pgstore.ErrNotFound})
	_, err := srv.GetPayment(context.Background(), &paymentspb.GetPaymentRequest{PaymentID: "missing"})

	require.Error(t, err)
	st, ok := status.FromError(errToGRPCStatus(err))
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
}

func TestGetPayment_ReturnsMappedPayment(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := New(&fakeAuthorizer{}, &fakeReader{payment: &model.Payment{
		ID: "pay-3", AmountMinor: 500, Currency: "USD", Status: model.PaymentAuthorized,
		CreatedAt: now, UpdatedAt: now,
	}})

	resp, err := srv.GetPayment(context.Background(), &paymentspb.GetPaymentRequest{PaymentID: "pay-3"})
	require.NoError(t, err)
	require.Equal(t, "pay-3", resp.ID)
	require.Equal(t, int64(500), resp.AmountCents)
	require.Nil(t, resp.Error)
}

func TestGetAccountBalance_MissingIDIsValidationError(t *testing.T) {
	srv := New(&fakeAuthorizer{}, &fakeReader{})
	_, err := srv.GetAccountBalance(context.Background(), &paymentspb.GetAccountBalanceRequest{})
	require.Error(t, err)
}

func TestGetAccountBalance_ReturnsMappedBalance(t *testing.T) {
	srv := New(&fakeAuthorizer{}, &fakeReader{balance: &model.AccountBalance{
		AccountID: "acc-1", AvailableMinor: 1000, PendingMinor: 0, Currency: "USD",
	}})

	resp, err := srv.GetAccountBalance(context.Background(), &paymentspb.GetAccountBalanceRequest{AccountID: "acc-1"})
	require.NoError(t, err)
	require.Equal(t, int64(1000), resp.AvailableCents)
}

// errToGRPCStatus bridges this package's apierr.ErrorResponse returns (not
// gRPC statuses themselves until errorsmw's interceptor runs) to status.FromError
// for assertions, mirroring what that interceptor does in production.
func errToGRPCStatus(err error) error {
	type grpcConvertible interface{ ToGRPC() error }
	if conv, ok := err.(grpcConvertible); ok {
		return conv.ToGRPC()
	}
	return err
}
