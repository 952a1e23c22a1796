package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type recordSetRequest struct {
	Exercise string  `json:"exercise"`
	WeightKg float64 `json:"weight_kg"`
	Reps     int     `json:"reps"`
}

// RecordWorkoutSet logs a set and reports whether it sets a new
// personal record.
func (s *Server) RecordWorkoutSet(c *gin.Context) {
	var req recordSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Exercise) == "" {
		AbortWithError(c, newValidationError("exercise", "required", "exercise is required"))
		return
	}

	userID, _ := currentUserID(c)
	result, err := s.workoutSvc.RecordSet(c.Request.Context(), userID, req.Exercise, req.WeightKg, req.Reps)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"log":              result.Log,
		"personal_record":  result.PersonalRecord,
		"previous_best_kg": result.PreviousBestKg,
	}})
}

func (s *Server) ListWorkoutHistory(c *gin.Context) {
	var query struct {
		Exercise string `form:"exercise"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, _ := currentUserID(c)
	logs, err := s.workoutSvc.History(c.Request.Context(), userID, query.Exercise, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) ListPersonalRecords(c *gin.Context) {
	userID, _ := currentUserID(c)
	records, err := s.workoutSvc.PersonalRecords(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
