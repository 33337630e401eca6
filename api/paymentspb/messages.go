// Package paymentspb holds the wire types and service contract for the
// payments RPC surface described in payments.proto.
//
// These message types are plain Go structs rather than protoc-generated
// bindings: the toolchain that normally turns payments.proto into
// payments.pb.go never runs here, so the codec in codec.go serializes these
// structs as JSON over the same gRPC framing instead of wire-format
// protobuf. The .proto file stays the source of truth for the contract
// shape; regenerating real bindings from it is a drop-in replacement for
// this package.
package paymentspb

type PaymentStatus string

const (
	PaymentStatusUnspecified PaymentStatus = "UNSPECIFIED"
	PaymentStatusAuthorized  PaymentStatus = "AUTHORIZED"
	PaymentStatusDeclined    PaymentStatus = "DECLINED"
	PaymentStatusDuplicate   PaymentStatus = "DUPLICATE"
)

type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AuthorizePaymentRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	PayerAccountID string `json:"payer_account_id"`
	PayeeAccountID string `json:"payee_account_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Description    string `json:"description,omitempty"`
}

type AuthorizePaymentResponse struct {
	PaymentID   string        `json:"payment_id"`
	Status      PaymentStatus `json:"status"`
	Error       *DomainError  `json:"error,omitempty"`
	ProcessedAt string        `json:"processed_at"`
}

type GetPaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type Payment struct {
	ID             string       `json:"id"`
	IdempotencyKey string       `json:"idempotency_key"`
	PayerAccountID string       `json:"payer_account_id"`
	PayeeAccountID string       `json:"payee_account_id"`
	AmountCents    int64        `json:"amount_cents"`
	Currency       string       `json:"currency"`
	Status         string       `json:"status"`
	Description    string       `json:"description,omitempty"`
	Error          *DomainError `json:"error,omitempty"`
	CreatedAt      string       `json:"created_at"`
	UpdatedAt      string       `json:"updated_at"`
}

type GetAccountBalanceRequest struct {
	AccountID string `json:"account_id"`
}

type AccountBalance struct {
	AccountID      string `json:"account_id"`
	AvailableCents int64  `json:"available_cents"`
	PendingCents   int64  `json:"pending_cents"`
	Currency       string `json:"currency"`
}
