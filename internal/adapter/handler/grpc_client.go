package handler

import (
	"context"

	"google.golang.org/grpc"
)

// CheckoutClient calls the checkout service over a connection using the JSON codec.
type CheckoutClient struct {
	cc grpc.ClientConnInterface
}

func NewCheckoutClient(cc grpc.ClientConnInterface) *CheckoutClient {
	return &CheckoutClient{cc: cc}
}

func (c *CheckoutClient) invoke(ctx context.Context, method string, req, resp any) error {
	return c.cc.Invoke(ctx, "/"+CheckoutServiceName+"/"+method, req, resp, grpc.CallContentSubtype(CodecName))
}

func (c *CheckoutClient) session(ctx context.Context, method string, req any) (*SessionResponse, error) {
	resp := new(SessionResponse)
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *CheckoutClient) OpenSession(ctx context.Context) (*SessionResponse, error) {
	return c.session(ctx, "OpenSession", &SessionRequest{})
}

func (c *CheckoutClient) GetSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return c.session(ctx, "GetSession", &SessionRequest{SessionID: sessionID})
}

func (c *CheckoutClient) AddLine(ctx context.Context, sessionID string, req AddLineRequest) (*SessionResponse, error) {
	return c.session(ctx, "AddLine", &AddLineMessage{SessionID: sessionID, AddLineRequest: req})
}

func (c *CheckoutClient) Checkout(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return c.session(ctx, "Checkout", &SessionRequest{SessionID: sessionID})
}

func (c *CheckoutClient) SubmitDelivery(ctx context.Context, sessionID string, req DeliveryRequest) (*SessionResponse, error) {
	return c.session(ctx, "SubmitDelivery", &DeliveryMessage{SessionID: sessionID, DeliveryRequest: req})
}

func (c *CheckoutClient) ContinueReview(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return c.session(ctx, "ContinueReview", &SessionRequest{SessionID: sessionID})
}

func (c *CheckoutClient) SelectMethod(ctx context.Context, sessionID, methodID string) (*SessionResponse, error) {
	return c.session(ctx, "SelectMethod", &SelectMethodMessage{
		SessionID:            sessionID,
		PaymentMethodRequest: PaymentMethodRequest{PaymentMethodID: methodID},
	})
}

func (c *CheckoutClient) ApplyPromo(ctx context.Context, sessionID, code string) (*SessionResponse, error) {
	return c.session(ctx, "ApplyPromo", &ApplyPromoMessage{SessionID: sessionID, PromoRequest: PromoRequest{Code: code}})
}

func (c *CheckoutClient) PlaceOrder(ctx context.Context, sessionID, requestID string) (*SessionResponse, error) {
	return c.session(ctx, "PlaceOrder", &PlaceOrderMessage{
		SessionID:         sessionID,
		PlaceOrderRequest: PlaceOrderRequest{RequestID: requestID},
	})
}

func (c *CheckoutClient) Close(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return c.session(ctx, "Close", &SessionRequest{SessionID: sessionID})
}

func (c *CheckoutClient) GetTracking(ctx context.Context, sessionID string) (*TrackingResponse, error) {
	resp := new(TrackingResponse)
	if err := c.invoke(ctx, "GetTracking", &SessionRequest{SessionID: sessionID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
