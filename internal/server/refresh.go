package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/pkg/db/pagination"
	"go.uber.org/zap"
)

// TriggerRefresh runs the pipeline synchronously. Findings still answer 200
// with status partial_findings; strict=true turns them into a 422.
func (s *Server) TriggerRefresh(c *gin.Context) {
	var query struct {
		Strict string `form:"strict"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	strict, err := parseStrict(query.Strict)
	if err != nil {
		AbortWithError(c, newValidationError("strict", "invalid_strict", "invalid strict"))
		return
	}

	// a disconnecting client must not abort a run halfway through
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := s.refresher.Run(ctx, refresh.WithTrigger(refresh.TriggerAPI))
	if err != nil && !errors.Is(err, refresh.ErrReplaceFailed) {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	switch {
	case len(result.ArtifactErrors) > 0:
		status = http.StatusInternalServerError
	case strict && result.Strict() != nil:
		status = http.StatusUnprocessableEntity
	}
	if status != http.StatusOK {
		s.log.Warn("refresh finished with errors",
			zap.String("run_id", result.RunID.String()),
			zap.String("status", string(result.Status)),
		)
	}
	c.JSON(status, gin.H{"data": result.Record()})
}

func (s *Server) GetRefreshState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"state": s.refresher.State()}})
}

func (s *Server) ListRefreshRuns(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	runs, pageInfo, err := s.reader.ListRuns(c.Request.Context(), query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs, "page_info": pageInfo})
}

func (s *Server) GetRefreshRun(c *gin.Context) {
	run, err := s.reader.GetRun(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

// parseStrict treats an absent flag as false.
func parseStrict(value string) (bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false, nil
	}
	return strconv.ParseBool(trimmed)
}
