package jibe

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "jibe.v1.GameService"

// Method names exposed by the game service.
const (
	MethodCreateSession = "CreateSession"
	MethodJoinSession   = "JoinSession"
	MethodStartSession  = "StartSession"
	MethodSubmitTurn    = "SubmitTurn"
	MethodScoreRound    = "ScoreRound"
	MethodGetSession    = "GetSession"
	MethodGetRound      = "GetRound"
)

// GameServiceServer is the server API for jibe.v1.GameService.
type GameServiceServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitTurn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScoreRound(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRound(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type handlerFunc func(GameServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call handlerFunc) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GameServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// GameServiceDesc describes jibe.v1.GameService for grpc.Server registration.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodCreateSession, GameServiceServer.CreateSession),
		unaryHandler(MethodJoinSession, GameServiceServer.JoinSession),
		unaryHandler(MethodStartSession, GameServiceServer.StartSession),
		unaryHandler(MethodSubmitTurn, GameServiceServer.SubmitTurn),
		unaryHandler(MethodScoreRound, GameServiceServer.ScoreRound),
		unaryHandler(MethodGetSession, GameServiceServer.GetSession),
		unaryHandler(MethodGetRound, GameServiceServer.GetRound),
	},
	Metadata: "jibe/v1/game.proto",
}

// RegisterGameServiceServer registers srv on s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// Client calls jibe.v1.GameService over a client connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with in and returns the response payload.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
