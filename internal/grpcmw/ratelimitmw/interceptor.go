// Package ratelimitmw places the sliding-window admission gate at the front
// of the server interceptor chain, ahead of timing and everything else.
package ratelimitmw

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	mdutil "github.com/vortex-fintech/payments-ledger/internal/grpcmw/mdutil"
)

// clientIDHeader is the incoming metadata key callers may set to identify
// themselves for rate-limiting purposes, ahead of falling back to the
// connection's peer address.
const clientIDHeader = "x-client-id"

// Limiter is the admission gate this interceptor consults. Satisfied by
// internal/ratelimit.Limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

// RejectionCounter records a rate-limit rejection for a method, even though
// the timing interceptor downstream never sees the request. Satisfied by
// internal/obs.Collectors.
type RejectionCounter interface {
	Inc(method string)
}

type nopCounter struct{}

func (nopCounter) Inc(string) {}

// Applies reports whether a given full method should be subject to rate
// limiting. A nil Applies admits every method to the gate.
type Applies func(fullMethod string) bool

// Unary returns a grpc.UnaryServerInterceptor that rejects with
// RESOURCE_EXHAUSTED once key admits no more than limit events per window,
// for any method applies selects. Methods applies rejects pass straight
// through, uncounted and unthrottled. It must be placed first in the chain:
// everything after it, including the timing interceptor, only runs for
// admitted requests.
func Unary(limiter Limiter, counter RejectionCounter, limit int, window time.Duration, applies Applies) grpc.UnaryServerInterceptor {
	if counter == nil {
		counter = nopCounter{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if applies != nil && !applies(info.FullMethod) {
			return handler(ctx, req)
		}
		key := admissionKey(ctx, info.FullMethod)
		if !limiter.Allow(ctx, key, limit, window) {
			counter.Inc(info.FullMethod)
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

// Stream is the streaming counterpart of Unary, kept for parity with the
// rest of the chain even though this service exposes no streaming RPCs
// today.
func Stream(limiter Limiter, counter RejectionCounter, limit int, window time.Duration, applies Applies) grpc.StreamServerInterceptor {
	if counter == nil {
		counter = nopCounter{}
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if applies != nil && !applies(info.FullMethod) {
			return handler(srv, ss)
		}
		ctx := ss.Context()
		key := admissionKey(ctx, info.FullMethod)
		if !limiter.Allow(ctx, key, limit, window) {
			counter.Inc(info.FullMethod)
			return status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(srv, ss)
	}
}

// admissionKey derives the rate-limit key: client-id header if present,
// else the caller's peer address, else the method name.
func admissionKey(ctx context.Context, fullMethod string) string {
	if v := mdutil.Get(ctx, clientIDHeader); v != "" {
		return v
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if addr := p.Addr.String(); addr != "" {
			return addr
		}
	}
	return fullMethod
}
