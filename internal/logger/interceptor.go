package logger

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader is echoed back to clients and accepted from trusted
// proxies.
const RequestIDHeader = "X-Request-Id"

// Interceptor assigns each call a request ID, stores a request-scoped entry in
// context and logs the call outcome.
func Interceptor(log *logrus.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			requestID := req.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.New().String()
			}

			entry := log.WithFields(logrus.Fields{
				"request_id": requestID,
				"procedure":  req.Spec().Procedure,
			})
			ctx = WithEntry(WithRequestID(ctx, requestID), entry)

			start := time.Now()
			resp, err := next(ctx, req)
			fields := logrus.Fields{"duration_ms": time.Since(start).Milliseconds()}

			if err != nil {
				code := connect.CodeOf(err)
				fields["code"] = code.String()
				var cerr *connect.Error
				if errors.As(err, &cerr) {
					cerr.Meta().Set(RequestIDHeader, requestID)
				}
				if code == connect.CodeInternal || code == connect.CodeUnknown {
					entry.WithFields(fields).WithError(err).Error("request failed")
				} else {
					entry.WithFields(fields).WithError(err).Warn("request rejected")
				}
				return nil, err
			}

			resp.Header().Set(RequestIDHeader, requestID)
			entry.WithFields(fields).Info("request completed")
			return resp, nil
		}
	}
}
