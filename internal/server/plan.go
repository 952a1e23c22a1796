package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListPlans returns the purchasable coaching plans.
func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planRepo.ListActive(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}
