package postgres

import "context"

// TxManager is a minimal transaction management abstraction.
// Higher layers can depend on this interface instead of *Client.
type TxManager interface {
	WithTx(ctx context.Context, fn func(run Runner) error) error
	WithTxRO(ctx context.Context, fn func(run Runner) error) error
}

// AdvancedTxManager is an extended contract for advanced scenarios
// (retryable serializable, savepoints, explicit tx options).
type AdvancedTxManager interface {
	TxManager
	WithTxOpts(ctx context.Context, cfg TxConfig, fn func(run Runner) error) error
	WithSerializable(ctx context.Context, maxRetries int, fn func(run Runner) error) error
	WithSerializableRO(ctx context.Context, deferrable bool, fn func(run Runner) error) error
	WithSavepoint(ctx context.Context, run Runner, fn func(run Runner) error) error
}
