package grpcserver

import (
	"trendzn-restful/auth"
	"trendzn-restful/interceptors"
	"trendzn-restful/services"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer returns a gRPC server exposing the auth service and the
// standard health service. The health server is returned so callers can
// flip it to NOT_SERVING during shutdown.
func NewServer(authService services.AuthService, tokens *auth.TokenService, log *zap.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(log),
			interceptors.ZapLoggingInterceptor(log.Named("grpc")),
			interceptors.AuthInterceptor(tokens, LoginMethod, ValidateTokenMethod, healthCheckMethod),
		),
	)
	server.RegisterService(&AuthServiceDesc, NewAuthServiceServer(authService, tokens))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(AuthServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	return server, healthServer
}
