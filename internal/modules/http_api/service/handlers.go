package service

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deriv_bot/internal/models"
	"deriv_bot/internal/runner"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 500
)

type startRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *Server) handleStart(c *gin.Context) {
	p := who(c)

	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err))
			return
		}
	}

	report, err := s.bots.Start(c.Request.Context(), p.UserID, p.Tier, req.Symbols...)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleStop(c *gin.Context) {
	p := who(c)
	if err := s.bots.Stop(c.Request.Context(), p.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

func (s *Server) handleStatus(c *gin.Context) {
	report, err := s.bots.Status(c.Request.Context(), who(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, err := s.bots.Config(c.Request.Context(), who(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleSaveConfig(c *gin.Context) {
	p := who(c)

	var patch models.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err))
		return
	}

	cfg, warnings, err := s.bots.UpdateConfig(c.Request.Context(), p.UserID, p.Tier, patch)
	if err != nil {
		fail(c, err)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg, "warnings": warnings})
}

func (s *Server) handleForceTrade(c *gin.Context) {
	p := who(c)

	var o runner.ForceOrder
	if err := c.ShouldBindJSON(&o); err != nil {
		fail(c, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err))
		return
	}

	trade, err := s.bots.ForceTrade(c.Request.Context(), p.UserID, p.Tier, o)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleTrades(c *gin.Context) {
	limit := defaultTradesLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(v, maxTradesLimit)
	}

	trades, err := s.history.Trades(c.Request.Context(), who(c).UserID, limit)
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", models.ErrPersistence, err))
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleActive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_ids": s.bots.ActiveBots()})
}

func (s *Server) handleSymbols(c *gin.Context) {
	if s.symbols == nil {
		c.JSON(http.StatusOK, gin.H{"symbols": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": s.symbols.Open()})
}
