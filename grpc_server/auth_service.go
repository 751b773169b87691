package grpcserver

import (
	"context"

	"trendzn-restful/apperrors"
	"trendzn-restful/auth"
	"trendzn-restful/services"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const AuthServiceName = "trendzn.auth.v1.AuthService"

const (
	LoginMethod         = "/" + AuthServiceName + "/Login"
	ValidateTokenMethod = "/" + AuthServiceName + "/ValidateToken"
	CheckRoleMethod     = "/" + AuthServiceName + "/CheckRole"
)

// AuthServiceServer lets internal services log users in and check tokens
// without going through the REST API. Messages are protobuf well-known
// types so no generated code is needed.
type AuthServiceServer interface {
	// Login takes {email, password} and returns {success, token, message}.
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ValidateToken returns {valid, userId, username, role} or {valid, error}.
	ValidateToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// CheckRole reports whether the authenticated caller has the role.
	CheckRole(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

type authServiceServer struct {
	auth   services.AuthService
	tokens *auth.TokenService
}

func NewAuthServiceServer(authService services.AuthService, tokens *auth.TokenService) AuthServiceServer {
	return &authServiceServer{auth: authService, tokens: tokens}
}

func (s *authServiceServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	result, err := s.auth.Login(ctx, &services.LoginInput{
		Email:    fields["email"].GetStringValue(),
		Password: fields["password"].GetStringValue(),
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindInternal {
			return nil, status.Error(codes.Internal, "login failed")
		}
		// Rejected credentials are an unsuccessful response, not an RPC error.
		return structpb.NewStruct(map[string]any{
			"success": false,
			"message": apperrors.PublicMessage(err, false),
		})
	}
	return structpb.NewStruct(map[string]any{
		"success": true,
		"token":   result.Token,
		"user": map[string]any{
			"id":       float64(result.User.ID),
			"username": result.User.Username,
			"role":     result.User.Role,
		},
	})
}

func (s *authServiceServer) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := s.tokens.Verify(req.GetValue())
	if err != nil {
		return structpb.NewStruct(map[string]any{"valid": false, "error": err.Error()})
	}
	return structpb.NewStruct(map[string]any{
		"valid":    true,
		"userId":   float64(id.UserID),
		"username": id.Username,
		"role":     id.Role,
	})
}

func (s *authServiceServer) CheckRole(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "role is required")
	}
	id, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
	}
	if id.Role != req.GetValue() {
		return structpb.NewStruct(map[string]any{"granted": false, "error": "Permission denied"})
	}
	return structpb.NewStruct(map[string]any{"granted": true})
}

// AuthServiceDesc describes AuthServiceServer to grpc.Server.RegisterService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: loginHandler},
		{MethodName: "ValidateToken", Handler: validateTokenHandler},
		{MethodName: "CheckRole", Handler: checkRoleHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trendzn/auth/v1/auth.proto",
}

func loginHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LoginMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).Login(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func validateTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateTokenMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).ValidateToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func checkRoleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).CheckRole(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckRoleMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).CheckRole(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// AuthServiceClient calls the auth service over a client connection.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func (c *AuthServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LoginMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) ValidateToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateTokenMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) CheckRole(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CheckRoleMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
