package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListCustomerOverview(c *gin.Context) {
	resp, err := s.reader.CustomerOverview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerValues(c *gin.Context) {
	resp, err := s.reader.CustomerValues(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerRisk(c *gin.Context) {
	var query struct {
		Level string `form:"level"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reader.CustomerRisk(c.Request.Context(), strings.TrimSpace(query.Level))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlanPerformance(c *gin.Context) {
	resp, err := s.reader.PlanPerformance(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlanTypeARPU(c *gin.Context) {
	resp, err := s.reader.PlanTypeARPU(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMobileSubscriptions(c *gin.Context) {
	resp, err := s.reader.MobileSubscriptions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFiberSubscriptions(c *gin.Context) {
	resp, err := s.reader.FiberSubscriptions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMonthlyRevenue(c *gin.Context) {
	resp, err := s.reader.MonthlyRevenue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
