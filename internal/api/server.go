// Package api exposes the trading core over JSON HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedammareid/finance/internal/accounts"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/portfolio"
	"github.com/mohamedammareid/finance/internal/settlement"
	"github.com/mohamedammareid/finance/pkg/interfaces"
)

const (
	sessionCookie   = "session"
	accountIDKey    = "account_id"
	maxHistoryLimit = 500
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer is built on. Quotes should be the
// cached provider; settlement prices through its own provider.
type Deps struct {
	Accounts  *accounts.Service
	Sessions  interfaces.SessionStore
	Engine    *settlement.Engine
	Portfolio *portfolio.Calculator
	Ledger    interfaces.Ledger
	Quotes    interfaces.QuoteProvider
	Health    pinger
}

type Server struct {
	router *gin.Engine
	deps   Deps
	logger *logger.Logger
}

func NewServer(deps Deps, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router: router,
		deps:   deps,
		logger: log.Component("api"),
	}

	router.Use(s.requestLogger(), gin.Recovery(), noCache())

	router.GET("/healthz", s.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/register", s.register)
	router.POST("/login", s.login)
	router.POST("/logout", s.logout)

	authed := router.Group("/", s.requireSession())
	authed.GET("/quote", s.quote)
	authed.POST("/buy", s.buy)
	authed.POST("/sell", s.sell)
	authed.GET("/portfolio", s.portfolio)
	authed.GET("/history", s.history)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
