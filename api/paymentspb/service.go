package paymentspb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

const (
	PaymentsService_AuthorizePayment_FullMethodName  = "/payments.PaymentsService/AuthorizePayment"
	PaymentsService_GetPayment_FullMethodName        = "/payments.PaymentsService/GetPayment"
	PaymentsService_GetAccountBalance_FullMethodName = "/payments.PaymentsService/GetAccountBalance"
)

// PaymentsServiceClient is the client API for PaymentsService.
type PaymentsServiceClient interface {
	AuthorizePayment(ctx context.Context, in *AuthorizePaymentRequest, opts ...grpc.CallOption) (*AuthorizePaymentResponse, error)
	GetPayment(ctx context.Context, in *GetPaymentRequest, opts ...grpc.CallOption) (*Payment, error)
	GetAccountBalance(ctx context.Context, in *GetAccountBalanceRequest, opts ...grpc.CallOption) (*AccountBalance, error)
}

type paymentsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPaymentsServiceClient wraps cc. Every call is forced onto the JSON
// codec registered in codec.go, since dial-time content-subtype negotiation
// has no other way to learn which codec a plain-struct request needs.
func NewPaymentsServiceClient(cc grpc.ClientConnInterface) PaymentsServiceClient {
	return &paymentsServiceClient{cc}
}

func (c *paymentsServiceClient) AuthorizePayment(ctx context.Context, in *AuthorizePaymentRequest, opts ...grpc.CallOption) (*AuthorizePaymentResponse, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	out := new(AuthorizePaymentResponse)
	if err := c.cc.Invoke(ctx, PaymentsService_AuthorizePayment_FullMethodName, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentsServiceClient) GetPayment(ctx context.Context, in *GetPaymentRequest, opts ...grpc.CallOption) (*Payment, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	out := new(Payment)
	if err := c.cc.Invoke(ctx, PaymentsService_GetPayment_FullMethodName, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentsServiceClient) GetAccountBalance(ctx context.Context, in *GetAccountBalanceRequest, opts ...grpc.CallOption) (*AccountBalance, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	out := new(AccountBalance)
	if err := c.cc.Invoke(ctx, PaymentsService_GetAccountBalance_FullMethodName, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentsServiceServer is the server API for PaymentsService. All
// implementations must embed UnimplementedPaymentsServiceServer for forward
// compatibility.
type PaymentsServiceServer interface {
	AuthorizePayment(context.Context, *AuthorizePaymentRequest) (*AuthorizePaymentResponse, error)
	GetPayment(context.Context, *GetPaymentRequest) (*Payment, error)
	GetAccountBalance(context.Context, *GetAccountBalanceRequest) (*AccountBalance, error)
	mustEmbedUnimplementedPaymentsServiceServer()
}

type UnimplementedPaymentsServiceServer struct{}

func (UnimplementedPaymentsServiceServer) AuthorizePayment(context.Context, *AuthorizePaymentRequest) (*AuthorizePaymentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AuthorizePayment not implemented")
}

func (UnimplementedPaymentsServiceServer) GetPayment(context.Context, *GetPaymentRequest) (*Payment, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetPayment not implemented")
}

func (UnimplementedPaymentsServiceServer) GetAccountBalance(context.Context, *GetAccountBalanceRequest) (*AccountBalance, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetAccountBalance not implemented")
}

func (UnimplementedPaymentsServiceServer) mustEmbedUnimplementedPaymentsServiceServer() {}

type UnsafePaymentsServiceServer interface {
	mustEmbedUnimplementedPaymentsServiceServer()
}

func RegisterPaymentsServiceServer(s grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	s.RegisterService(&PaymentsService_ServiceDesc, srv)
}

func _PaymentsService_AuthorizePayment_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AuthorizePaymentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServiceServer).AuthorizePayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PaymentsService_AuthorizePayment_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PaymentsServiceServer).AuthorizePayment(ctx, req.(*AuthorizePaymentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PaymentsService_GetPayment_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetPaymentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServiceServer).GetPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PaymentsService_GetPayment_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PaymentsServiceServer).GetPayment(ctx, req.(*GetPaymentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PaymentsService_GetAccountBalance_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAccountBalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServiceServer).GetAccountBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PaymentsService_GetAccountBalance_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PaymentsServiceServer).GetAccountBalance(ctx, req.(*GetAccountBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// PaymentsService_ServiceDesc is the grpc.ServiceDesc for PaymentsService.
// It's only intended for direct use with grpc.RegisterService, and not to
// be introspected or modified (even as a copy).
var PaymentsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "payments.PaymentsService",
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AuthorizePayment", Handler: _PaymentsService_AuthorizePayment_Handler},
		{MethodName: "GetPayment", Handler: _PaymentsService_GetPayment_Handler},
		{MethodName: "GetAccountBalance", Handler: _PaymentsService_GetAccountBalance_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/paymentspb/payments.proto",
}
