package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStart(c *gin.Context) {
	if !s.engine.Start(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data feed not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) handleStop(c *gin.Context) {
	s.engine.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handlePerformance(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.StrategyPerformance())
}

func (s *Server) handleAddSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	s.engine.AddSymbol(symbol)
	s.logger.Info().Str("symbol", symbol).Msg("symbol added")
	c.JSON(http.StatusOK, gin.H{"symbol": symbol})
}

func (s *Server) handleRemoveSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	s.engine.RemoveSymbol(symbol)
	s.logger.Info().Str("symbol", symbol).Msg("symbol removed")
	c.JSON(http.StatusOK, gin.H{"symbol": symbol})
}
