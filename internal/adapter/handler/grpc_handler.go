package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/service"
)

const CheckoutServiceName = "plug.checkout.v1.Checkout"

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type AddLineMessage struct {
	SessionID string `json:"session_id"`
	AddLineRequest
}

type DeliveryMessage struct {
	SessionID string `json:"session_id"`
	DeliveryRequest
}

type SelectMethodMessage struct {
	SessionID string `json:"session_id"`
	PaymentMethodRequest
}

type ApplyPromoMessage struct {
	SessionID string `json:"session_id"`
	PromoRequest
}

type PlaceOrderMessage struct {
	SessionID string `json:"session_id"`
	PlaceOrderRequest
}

// CheckoutServer is the gRPC surface of the checkout wizard.
type CheckoutServer interface {
	OpenSession(context.Context, *SessionRequest) (*SessionResponse, error)
	GetSession(context.Context, *SessionRequest) (*SessionResponse, error)
	AddLine(context.Context, *AddLineMessage) (*SessionResponse, error)
	Checkout(context.Context, *SessionRequest) (*SessionResponse, error)
	SubmitDelivery(context.Context, *DeliveryMessage) (*SessionResponse, error)
	ContinueReview(context.Context, *SessionRequest) (*SessionResponse, error)
	SelectMethod(context.Context, *SelectMethodMessage) (*SessionResponse, error)
	ApplyPromo(context.Context, *ApplyPromoMessage) (*SessionResponse, error)
	PlaceOrder(context.Context, *PlaceOrderMessage) (*SessionResponse, error)
	Close(context.Context, *SessionRequest) (*SessionResponse, error)
	GetTracking(context.Context, *SessionRequest) (*TrackingResponse, error)
}

type GRPCHandler struct {
	checkout *service.CheckoutService
}

func NewGRPCHandler(checkout *service.CheckoutService) *GRPCHandler {
	return &GRPCHandler{checkout: checkout}
}

// Register attaches the checkout service to s.
func (h *GRPCHandler) Register(s *grpc.Server) {
	s.RegisterService(&CheckoutServiceDesc, h)
}

func (h *GRPCHandler) OpenSession(ctx context.Context, _ *SessionRequest) (*SessionResponse, error) {
	return sessionReply(h.checkout.OpenSession(ctx))
}

func (h *GRPCHandler) GetSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	return sessionReply(h.checkout.Session(ctx, req.SessionID))
}

func (h *GRPCHandler) AddLine(ctx context.Context, req *AddLineMessage) (*SessionResponse, error) {
	if req.Item.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}
	item, options, addOns := req.toDomain()
	return sessionReply(h.checkout.AddLine(ctx, req.SessionID, item, req.Quantity, options, addOns))
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	return sessionReply(h.checkout.Checkout(ctx, req.SessionID))
}

func (h *GRPCHandler) SubmitDelivery(ctx context.Context, req *DeliveryMessage) (*SessionResponse, error) {
	return sessionReply(h.checkout.SubmitDelivery(ctx, req.SessionID, req.toDomain()))
}

func (h *GRPCHandler) ContinueReview(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	return sessionReply(h.checkout.ContinueReview(ctx, req.SessionID))
}

func (h *GRPCHandler) SelectMethod(ctx context.Context, req *SelectMethodMessage) (*SessionResponse, error) {
	return sessionReply(h.checkout.SelectMethod(ctx, req.SessionID, req.PaymentMethodID))
}

func (h *GRPCHandler) ApplyPromo(ctx context.Context, req *ApplyPromoMessage) (*SessionResponse, error) {
	return sessionReply(h.checkout.ApplyPromo(ctx, req.SessionID, req.Code))
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderMessage) (*SessionResponse, error) {
	if req.RequestID == "" {
		return nil, status.Error(codes.InvalidArgument, "request_id is required")
	}
	return sessionReply(h.checkout.PlaceOrder(ctx, req.SessionID, req.RequestID))
}

func (h *GRPCHandler) Close(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	return sessionReply(h.checkout.Close(ctx, req.SessionID))
}

func (h *GRPCHandler) GetTracking(ctx context.Context, req *SessionRequest) (*TrackingResponse, error) {
	snap, err := h.checkout.Tracking(ctx, req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	return newTracking(snap), nil
}

func sessionReply(view service.SessionView, err error) (*SessionResponse, error) {
	if err != nil {
		return nil, grpcError(err)
	}
	resp := newSession(view)
	return &resp, nil
}

func grpcError(err error) error {
	msg := err.Error()
	switch apperr.Kind(err) {
	case "empty_cart":
		msg = msgEmptyCart
	case "internal":
		msg = "internal error"
	}
	return status.Error(apperr.GRPCCode(err), msg)
}

// LoggingInterceptor logs every unary call with its status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}

// unary builds a method descriptor that decodes Req and dispatches to call.
func unary[Req any, Resp any](name string, call func(CheckoutServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			server := srv.(CheckoutServer)
			if interceptor == nil {
				return call(server, ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + CheckoutServiceName + "/" + name,
			}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return call(server, ctx, r.(*Req))
			})
		},
	}
}

var CheckoutServiceDesc = grpc.ServiceDesc{
	ServiceName: CheckoutServiceName,
	HandlerType: (*CheckoutServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenSession", CheckoutServer.OpenSession),
		unary("GetSession", CheckoutServer.GetSession),
		unary("AddLine", CheckoutServer.AddLine),
		unary("Checkout", CheckoutServer.Checkout),
		unary("SubmitDelivery", CheckoutServer.SubmitDelivery),
		unary("ContinueReview", CheckoutServer.ContinueReview),
		unary("SelectMethod", CheckoutServer.SelectMethod),
		unary("ApplyPromo", CheckoutServer.ApplyPromo),
		unary("PlaceOrder", CheckoutServer.PlaceOrder),
		unary("Close", CheckoutServer.Close),
		unary("GetTracking", CheckoutServer.GetTracking),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "plug/checkout/v1/checkout.proto",
}
