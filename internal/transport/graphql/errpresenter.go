package graphql

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/pkg/ctxutil"
)

var errInternal = errors.New("internal system error")

// NewErrorPresenter returns a gqlgen error presenter that maps domain errors
// to GraphQL error codes.
func NewErrorPresenter(log *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		gqlErr := graphql.DefaultErrorPresenter(ctx, err)

		// Parse, validation and null errors carry no cause and are already
		// in their final shape.
		if errors.Unwrap(gqlErr) == nil {
			return gqlErr
		}

		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			gqlErr.Message = "validation failed"
			gqlErr.Extensions = map[string]any{"code": "VALIDATION", "fields": fieldsOf(ve)}

		case errors.Is(err, domain.ErrValidation):
			gqlErr.Extensions = map[string]any{"code": "VALIDATION"}

		case errors.Is(err, domain.ErrNotFound):
			gqlErr.Message = "not found"
			gqlErr.Extensions = map[string]any{"code": "NOT_FOUND"}

		case errors.Is(err, domain.ErrUnauthorized):
			gqlErr.Message = "unauthorized"
			gqlErr.Extensions = map[string]any{"code": "UNAUTHENTICATED"}

		case errors.Is(err, domain.ErrForbidden):
			gqlErr.Message = "forbidden"
			gqlErr.Extensions = map[string]any{"code": "FORBIDDEN"}

		case errors.Is(err, domain.ErrPartialPromotion):
			gqlErr.Message = "item was published but the suggestion is still pending; retry the approval"
			gqlErr.Extensions = map[string]any{"code": "PARTIAL_PROMOTION"}

		case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
			gqlErr.Message = "conflict"
			gqlErr.Extensions = map[string]any{"code": "CONFLICT"}

		case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
			log.WarnContext(ctx, "store unavailable",
				slog.String("error", err.Error()),
				slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
			)
			gqlErr.Message = "service temporarily unavailable"
			gqlErr.Extensions = map[string]any{"code": "UNAVAILABLE"}

		default:
			log.ErrorContext(ctx, "unexpected GraphQL error",
				slog.String("error", err.Error()),
				slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
			)
			gqlErr.Message = "internal error"
			gqlErr.Extensions = map[string]any{"code": "INTERNAL"}
		}

		return gqlErr
	}
}

func fieldsOf(ve *domain.ValidationError) []map[string]string {
	out := make([]map[string]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		out = append(out, map[string]string{"field": fe.Field, "message": fe.Message})
	}
	return out
}

// NewRecoverFunc returns a gqlgen recover func that logs the panic. The
// client sees a generic internal error.
func NewRecoverFunc(log *slog.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, v any) error {
		log.ErrorContext(ctx, "panic in resolver",
			slog.Any("panic", v),
			slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
			slog.String("stack", string(debug.Stack())),
		)
		return errInternal
	}
}
