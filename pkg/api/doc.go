/*
Package api provides the HTTP scaffolding for collabd's admin surface:
liveness/readiness endpoints, Prometheus exposition, and a read-only gRPC
interceptor for the local admin socket. The gRPC service itself lives in
internal/adminserver; this package only hosts the transport-level pieces
shared by both the HTTP and gRPC listeners cmd/collabd starts.
*/
package api
