package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/internal/runner"
	"deriv_bot/pkg/logger"
)

// Bots — операции менеджера, которые торчат наружу.
type Bots interface {
	Start(ctx context.Context, userID int64, tier models.Tier, extraSymbols ...string) (*models.BotReport, error)
	Stop(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*models.BotReport, error)
	ActiveBots() []int64
	Config(ctx context.Context, userID int64) (*models.BotConfig, error)
	UpdateConfig(ctx context.Context, userID int64, tier models.Tier, patch models.ConfigPatch) (*models.BotConfig, []string, error)
	ForceTrade(ctx context.Context, userID int64, tier models.Tier, o runner.ForceOrder) (*models.Trade, error)
}

// Symbols — список открытых символов площадки.
type Symbols interface {
	Open() []derivws.SymbolInfo
}

type principal struct {
	UserID int64
	Tier   models.Tier
}

const principalKey = "principal"

type Server struct {
	bots    Bots
	history runner.TradeHistory
	symbols Symbols
	tokens  map[string]principal
}

func NewServer(users []config.APIUser, bots Bots, history runner.TradeHistory, symbols Symbols) *Server {
	tokens := make(map[string]principal, len(users))
	for _, u := range users {
		if u.Token == "" || u.UserID == 0 {
			continue
		}
		tier := models.Tier(u.Tier)
		if tier == "" {
			tier = models.TierFree
		}
		tokens[u.Token] = principal{UserID: u.UserID, Tier: tier}
	}
	return &Server{bots: bots, history: history, symbols: symbols, tokens: tokens}
}

// Handler — gin-роутер со всеми маршрутами.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())

	r.GET("/symbols", s.handleSymbols)

	bot := r.Group("/bot", s.auth())
	bot.POST("/start", s.handleStart)
	bot.POST("/stop", s.handleStop)
	bot.GET("/status", s.handleStatus)
	bot.GET("/config", s.handleGetConfig)
	bot.POST("/config", s.handleSaveConfig)
	bot.PUT("/config", s.handleSaveConfig)
	bot.POST("/force-trade", s.handleForceTrade)
	bot.GET("/trades", s.handleTrades)
	bot.GET("/active", s.handleActive)

	return r
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		p, ok := s.tokens[strings.TrimSpace(token)]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func who(c *gin.Context) principal {
	return c.MustGet(principalKey).(principal)
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[HTTP] %s %s -> %d in %s", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// statusFor — какой HTTP-код у доменной ошибки.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidConfig), errors.Is(err, models.ErrInsufficientData):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTierLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAlreadyRunning), errors.Is(err, models.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrRemoteRejected), errors.Is(err, models.ErrConnectionLost):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": err.Error()}
	var remote *models.RemoteError
	if errors.As(err, &remote) {
		body["code"] = remote.Code
	}
	c.AbortWithStatusJSON(code, body)
}
