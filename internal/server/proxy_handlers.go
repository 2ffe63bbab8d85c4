package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/fedya-eremin/ms-ws/internal/services/decision"
)

// ProxyServiceName is the fully-qualified name of the broker proxy service.
const ProxyServiceName = "centrifugo.proxy.CentrifugoProxy"

// Procedure paths served by the proxy handler.
const (
	PublishProcedure   = "/" + ProxyServiceName + "/Publish"
	SubscribeProcedure = "/" + ProxyServiceName + "/Subscribe"
)

// Decider answers publish and subscribe checks.
type Decider interface {
	CheckPublish(ctx context.Context, userID, channel string) decision.Decision
	CheckSubscribe(ctx context.Context, userID, channel string) decision.Decision
}

// ProxyHandler adapts decisions to the broker proxy contract. Every
// decision, including internal failures, is carried in the response body;
// the handler never returns a Connect error.
type ProxyHandler struct {
	decisions Decider
}

// NewProxyHandler constructs a handler backed by the given decider.
func NewProxyHandler(decisions Decider) *ProxyHandler {
	return &ProxyHandler{decisions: decisions}
}

// Publish handles a publish proxy call.
func (h *ProxyHandler) Publish(
	ctx context.Context,
	req *connect.Request[ProxyRequest],
) (*connect.Response[ProxyResponse], error) {
	d := h.decisions.CheckPublish(ctx, req.Msg.User, req.Msg.Channel)
	return connect.NewResponse(toProxyResponse(d)), nil
}

// Subscribe handles a subscribe proxy call.
func (h *ProxyHandler) Subscribe(
	ctx context.Context,
	req *connect.Request[ProxyRequest],
) (*connect.Response[ProxyResponse], error) {
	d := h.decisions.CheckSubscribe(ctx, req.Msg.User, req.Msg.Channel)
	return connect.NewResponse(toProxyResponse(d)), nil
}

func toProxyResponse(d decision.Decision) *ProxyResponse {
	switch v := d.(type) {
	case decision.Allowed:
		return &ProxyResponse{Result: &ProxyResult{}}
	case decision.Denied:
		return &ProxyResponse{Error: &ProxyError{
			Code:      uint32(v.Code),
			Message:   v.Message,
			Temporary: v.Temporary,
		}}
	default:
		return &ProxyResponse{Error: &ProxyError{
			Code:      decision.CodeInternal,
			Message:   "no decision",
			Temporary: true,
		}}
	}
}

// NewProxyServiceHandler builds an http.Handler serving both procedures and
// returns the path prefix to mount it on. Messages are plain structs, so only
// JSON requests are decoded; protobuf and gRPC calls fail in the codec.
func NewProxyServiceHandler(h *ProxyHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PublishProcedure, connect.NewUnaryHandler(PublishProcedure, h.Publish, opts...))
	mux.Handle(SubscribeProcedure, connect.NewUnaryHandler(SubscribeProcedure, h.Subscribe, opts...))
	return "/" + ProxyServiceName + "/", mux
}
