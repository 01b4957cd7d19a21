package grpcx

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/md-rashed-zaman/meetsync/libs/httpx"
)

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// RequestIDMetadataKey carries the request id in gRPC metadata. It matches httpx.RequestIDHeader
// lowercased, so ids survive an HTTP to gRPC hop unchanged.
const RequestIDMetadataKey = "x-request-id"

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// incomingRequestID returns the first usable id in the incoming metadata, or a fresh one.
func incomingRequestID(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(RequestIDMetadataKey) {
		if id := httpx.SanitizeRequestID(v); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// outgoingRequestID picks the id to forward on a client call: one set by HTTP middleware wins over
// one received on an inbound gRPC call.
func outgoingRequestID(ctx context.Context) string {
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return RequestIDFromContext(ctx)
}
