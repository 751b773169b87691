package interceptors

import (
	"context"
	"testing"
	"time"

	"trendzn-restful/auth"
	"trendzn-restful/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	publicMethod  = "/test.Service/Public"
	privateMethod = "/test.Service/Private"
)

func identityHandler(ctx context.Context, req interface{}) (interface{}, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return "anonymous", nil
	}
	return id.Username, nil
}

func TestAuthInterceptor(t *testing.T) {
	tokens := auth.NewTokenService("grpc-secret", time.Hour, "trendzn")
	token, err := tokens.Issue(&models.User{ID: 7, Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)
	interceptor := AuthInterceptor(tokens, publicMethod)

	call := func(ctx context.Context, method string) (interface{}, error) {
		return interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, identityHandler)
	}
	withAuth := func(value string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
	}

	got, err := call(context.Background(), publicMethod)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", got)

	got, err = call(withAuth("Bearer "+token), privateMethod)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	for name, ctx := range map[string]context.Context{
		"no metadata":  context.Background(),
		"no header":    metadata.NewIncomingContext(context.Background(), metadata.MD{}),
		"wrong scheme": withAuth("Basic " + token),
		"bad token":    withAuth("Bearer not-a-token"),
	} {
		_, err := call(ctx, privateMethod)
		assert.Equal(t, codes.Unauthenticated, status.Code(err), name)
	}
}

func TestZapLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	interceptor := ZapLoggingInterceptor(zap.New(core))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "req-1"))
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: privateMethod}, identityHandler)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
	assert.Equal(t, "Private", entries[1].ContextMap()["grpc.method"])
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zap.NewNop())
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: privateMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}
