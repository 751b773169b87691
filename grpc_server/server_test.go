package grpcserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"trendzn-restful/auth"
	"trendzn-restful/config"
	"trendzn-restful/database"
	"trendzn-restful/repositories"
	"trendzn-restful/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func startServer(t *testing.T) (*AuthServiceClient, *grpc.ClientConn, services.AuthService) {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "grpc.db")}, zap.NewNop())
	require.NoError(t, err)

	tokens := auth.NewTokenService("grpc-test-secret", time.Hour, "trendzn")
	authService := services.NewAuthService(repositories.NewUserRepository(db), tokens, bcrypt.MinCost, zap.NewNop())

	listener := bufconn.Listen(1 << 20)
	server, _ := NewServer(authService, tokens, zap.NewNop())
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewAuthServiceClient(conn), conn, authService
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	client, _, authService := startServer(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, &services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	req, err := structpb.NewStruct(map[string]any{"email": "alice@example.com", "password": "wrong-pass"})
	require.NoError(t, err)
	resp, err := client.Login(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.Fields["success"].GetBoolValue())
	assert.Equal(t, "Invalid credentials", resp.Fields["message"].GetStringValue())

	req, err = structpb.NewStruct(map[string]any{"email": "alice@example.com", "password": "secret1"})
	require.NoError(t, err)
	resp, err = client.Login(ctx, req)
	require.NoError(t, err)
	require.True(t, resp.Fields["success"].GetBoolValue())
	token := resp.Fields["token"].GetStringValue()
	require.NotEmpty(t, token)
	assert.Equal(t, "alice", resp.Fields["user"].GetStructValue().Fields["username"].GetStringValue())

	valid, err := client.ValidateToken(ctx, wrapperspb.String(token))
	require.NoError(t, err)
	assert.True(t, valid.Fields["valid"].GetBoolValue())
	assert.Equal(t, "alice", valid.Fields["username"].GetStringValue())
	assert.Equal(t, "user", valid.Fields["role"].GetStringValue())

	invalid, err := client.ValidateToken(ctx, wrapperspb.String("garbage"))
	require.NoError(t, err)
	assert.False(t, invalid.Fields["valid"].GetBoolValue())
	assert.NotEmpty(t, invalid.Fields["error"].GetStringValue())
}

func TestAuthServiceCheckRole(t *testing.T) {
	client, _, authService := startServer(t)
	ctx := context.Background()

	result, err := authService.Register(ctx, &services.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = client.CheckRole(ctx, wrapperspb.String("admin"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+result.Token)
	resp, err := client.CheckRole(authed, wrapperspb.String("admin"))
	require.NoError(t, err)
	assert.False(t, resp.Fields["granted"].GetBoolValue())

	resp, err = client.CheckRole(authed, wrapperspb.String("user"))
	require.NoError(t, err)
	assert.True(t, resp.Fields["granted"].GetBoolValue())

	_, err = client.CheckRole(authed, wrapperspb.String(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealthCheckIsPublic(t *testing.T) {
	_, conn, _ := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: AuthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
