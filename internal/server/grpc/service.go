package grpc

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"google.golang.org/grpc"
)

const (
	ServiceName = "teamflow.v1.TeamFlow"
	CallMethod  = "/" + ServiceName + "/Call"
)

// CallRequest is the wire form of one operation invocation.
type CallRequest struct {
	Operation string          `json:"operation"`
	Params    json.RawMessage `json:"params,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// TeamFlowServer is implemented by Server.
type TeamFlowServer interface {
	Call(ctx context.Context, req *CallRequest) (*api.Response, error)
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CallRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TeamFlowServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CallMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TeamFlowServer).Call(ctx, req.(*CallRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TeamFlowServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// Invoke calls the TeamFlow service over conn. Callers attach the access
// token with metadata.AppendToOutgoingContext.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, req *CallRequest, opts ...grpc.CallOption) (*api.Response, error) {
	out := new(api.Response)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := conn.Invoke(ctx, CallMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
