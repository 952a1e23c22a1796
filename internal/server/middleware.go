package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authzdomain "github.com/strideworks/traincore/internal/authorization/domain"
)

const (
	userIDHeader     = "X-User-Id"
	contextUserIDKey = "user_id"
)

// UserRequired reads the authenticated user id set by the identity
// gateway. Session validation happens upstream; this layer only needs
// the identity.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(userIDHeader))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(contextUserIDKey, snowflake.ID(parsed))
		c.Next()
	}
}

// RequireRole checks membership after UserRequired has resolved the user.
func (s *Server) RequireRole(accepted ...authzdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authz.Require(c.Request.Context(), userID, accepted...); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RateLimit applies a per-client fixed-window limit keyed by user id
// when present, client IP otherwise.
func (s *Server) RateLimit(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(userIDHeader))
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.Allow(key) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	value, exists := c.Get(contextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok
}
