package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/holiday-pay-importer/internal/sysutil"
)

const (
	// ctxKeyActor is where upstream auth middleware stores the caller identity.
	ctxKeyActor = "userID"

	// HeaderActor lets trusted internal callers (and tests) name the actor
	// when no auth middleware is in front of the service.
	HeaderActor = "X-User-ID"

	// defaultActor is recorded on imports when no identity is available.
	defaultActor = "anonymous"
)

// Actor returns the identity an import is recorded under: the context value
// set by auth middleware, then the X-User-ID header, then "anonymous".
func Actor(c *gin.Context) string {
	var fromCtx, fromHeader string
	if v, ok := c.Get(ctxKeyActor); ok {
		fromCtx, _ = v.(string)
	}
	if c.Request != nil {
		fromHeader = c.GetHeader(HeaderActor)
	}
	return strings.TrimSpace(sysutil.FirstNonEmpty(fromCtx, fromHeader, defaultActor))
}

// authenticatedActor returns only the context identity; headers are not
// trusted for bucketing.
func authenticatedActor(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyActor); ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
