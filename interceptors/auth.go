package interceptors

import (
	"context"

	"trendzn-restful/auth"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthInterceptor verifies the bearer token of every non-public method and
// stores the identity in the handler context (see auth.FromContext).
func AuthInterceptor(tokens *auth.TokenService, publicMethods ...string) grpc.UnaryServerInterceptor {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if public[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata is not provided")
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
		}
		token, ok := auth.BearerToken(values[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization header format")
		}

		id, err := tokens.Verify(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return handler(auth.WithIdentity(ctx, id), req)
	}
}
