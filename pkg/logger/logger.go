package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int8

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyUserID
	ctxKeyTenantID
)

// Handler adds request scoped attributes stored on the context to every record.
type Handler struct {
	slog.Handler
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		record.Add("request_id", v)
	}

	if v, ok := ctx.Value(ctxKeyUserID).(uuid.UUID); ok {
		record.Add("user_id", v.String())
	}

	if v, ok := ctx.Value(ctxKeyTenantID).(uuid.UUID); ok {
		record.Add("tenant_id", v.String())
	}

	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h.Handler.WithGroup(name)}
}

// New builds the process logger and installs it as the slog default.
func New(level, format string) (*slog.Logger, error) {
	l, err := NewWithWriter(os.Stdout, level, format)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(l)

	return l, nil
}

func NewWithWriter(w io.Writer, level, format string) (*slog.Logger, error) {
	var sLevel slog.Level

	err := sLevel.UnmarshalText([]byte(level))
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: sLevel,
	}

	var inner slog.Handler
	if strings.EqualFold(format, "text") {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&Handler{inner}), nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

func WithUser(ctx context.Context, userID, tenantID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUserID, userID)
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

func RequestIDFromCtx(ctx context.Context) string {
	requestID, ok := ctx.Value(ctxKeyRequestID).(string)
	if !ok {
		return ""
	}

	return requestID
}
