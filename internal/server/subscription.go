package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authzdomain "github.com/strideworks/traincore/internal/authorization/domain"
)

// GetSubscription returns a subscription by id. Clients may only read
// their own; trainers and admins may read any.
func (s *Server) GetSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	sub, err := s.subscriptionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if sub.UserID != userID {
		if err := s.authz.Require(c.Request.Context(), userID, authzdomain.RoleTrainer); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

// GetOwnSubscription returns the caller's most recent subscription.
func (s *Server) GetOwnSubscription(c *gin.Context) {
	userID, _ := currentUserID(c)
	sub, err := s.subscriptionSvc.GetByUser(c.Request.Context(), userID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}
