package auth

import (
	"strings"
	"time"

	"profile-api/pkg/logger"
	"profile-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "bearer"
)

type middlewareOptions struct {
	now func() time.Time
}

type MiddlewareOption func(*middlewareOptions)

// WithClock overrides the time source used to check token lifetime.
func WithClock(now func() time.Time) MiddlewareOption {
	return func(o *middlewareOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Authenticate resolves the bearer token on every request and records the
// outcome in the request context. It never aborts: a missing token leaves the
// request anonymous and an invalid one marks it rejected. Endpoints that need
// an identity enforce it with internal/authz.
func Authenticate(m *Manager, opts ...MiddlewareOption) gin.HandlerFunc {
	o := middlewareOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return func(c *gin.Context) {
		raw, present := bearerToken(c.GetHeader(authorizationHeader))
		if !present {
			c.Set(GinKeyAuthState, StateAnonymous)
			c.Request = c.Request.WithContext(WithAuthState(c.Request.Context(), StateAnonymous))
			metrics.ObserveTokenCheck(metrics.TokenAbsent)
			c.Next()
			return
		}

		id, err := m.verifySafely(raw, o.now())
		if err != nil {
			reason := rejectionReason(err)
			logger.FromGin(c).Debug("bearer token rejected", "reason", reason, "err", err)
			metrics.ObserveTokenRejection(reason)

			c.Set(GinKeyAuthState, StateRejected)
			c.Request = c.Request.WithContext(WithAuthState(c.Request.Context(), StateRejected))
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Set(GinKeyAuthState, StateAuthenticated)
		c.Set(GinKeyUserID, id.UserID)
		metrics.ObserveTokenCheck(metrics.TokenAdmitted)

		c.Next()
	}
}

// bearerToken reports whether header carries a bearer credential. Other
// schemes count as absent. An empty or oversized bearer value is returned as
// present so that it is rejected rather than ignored.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, tok, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	return strings.TrimSpace(tok), true
}
