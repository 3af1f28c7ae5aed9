package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ReadOnlyInterceptor creates a gRPC unary interceptor that only allows
// read-only admin methods. It is used on the admin surface's Unix socket
// listener to keep destructive operations (TriggerCompaction) off a
// channel that any local process can dial.
func ReadOnlyInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !isReadOnlyMethod(info.FullMethod) {
			return nil, status.Errorf(
				codes.PermissionDenied,
				"write operations not allowed on the local admin socket - dial the TCP admin listener instead",
			)
		}

		return handler(ctx, req)
	}
}

// isReadOnlyMethod checks if a gRPC method is read-only.
func isReadOnlyMethod(method string) bool {
	// Extract method name from full path (e.g., "/collabd.admin.v1.AdminService/ListActiveSessions").
	parts := strings.Split(method, "/")
	if len(parts) < 2 {
		return false
	}
	methodName := parts[len(parts)-1]

	readOnlyPrefixes := []string{
		"List",
		"Get",
		"Watch",
	}

	for _, prefix := range readOnlyPrefixes {
		if strings.HasPrefix(methodName, prefix) {
			return true
		}
	}

	// Default: block (covers TriggerCompaction and any future mutating RPC).
	return false
}
