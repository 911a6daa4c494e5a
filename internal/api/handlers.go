package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mohamedammareid/finance/internal/accounts"
	"github.com/mohamedammareid/finance/internal/ledger"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/settlement"
	"github.com/mohamedammareid/finance/pkg/trading"
)

type credentialsRequest struct {
	Username     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
	Confirmation string `json:"confirmation" form:"confirmation"`
}

type orderRequest struct {
	Symbol string      `json:"symbol" form:"symbol"`
	Shares json.Number `json:"shares" form:"shares"`
}

type sessionResponse struct {
	AccountID   int64  `json:"account_id"`
	Username    string `json:"username"`
	Cash        string `json:"cash"`
	CashDisplay string `json:"cash_display"`
	Token       string `json:"token"`
}

type orderResponse struct {
	State         settlement.State `json:"state"`
	TradeID       int64            `json:"trade_id"`
	Side          trading.Side     `json:"side"`
	Symbol        string           `json:"symbol"`
	Shares        int64            `json:"shares"`
	Price         string           `json:"price"`
	PriceDisplay  string           `json:"price_display"`
	Amount        string           `json:"amount"`
	AmountDisplay string           `json:"amount_display"`
	Cash          string           `json:"cash"`
	CashDisplay   string           `json:"cash_display"`
}

type rejectionResponse struct {
	State   settlement.State  `json:"state"`
	Reason  settlement.Reason `json:"reason"`
	Message string            `json:"message"`
	Side    trading.Side      `json:"side"`
	Symbol  string            `json:"symbol"`
	Shares  int64             `json:"shares"`
}

type holdingResponse struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Shares       int64  `json:"shares"`
	Priced       bool   `json:"priced"`
	Price        string `json:"price,omitempty"`
	PriceDisplay string `json:"price_display,omitempty"`
	Value        string `json:"value,omitempty"`
	ValueDisplay string `json:"value_display,omitempty"`
}

type portfolioResponse struct {
	Holdings      []holdingResponse `json:"holdings"`
	Cash          string            `json:"cash"`
	CashDisplay   string            `json:"cash_display"`
	Total         string            `json:"total"`
	TotalDisplay  string            `json:"total_display"`
	HoldingsValue string            `json:"holdings_value"`
}

type historyRow struct {
	ID           int64        `json:"id"`
	Side         trading.Side `json:"side"`
	Symbol       string       `json:"symbol"`
	Shares       int64        `json:"shares"`
	Price        string       `json:"price"`
	PriceDisplay string       `json:"price_display"`
	ExecutedAt   time.Time    `json:"executed_at"`
}

func (s *Server) healthz(c *gin.Context) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", logger.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}

	acct, err := s.deps.Accounts.Register(c.Request.Context(), req.Username, req.Password, req.Confirmation)
	switch {
	case errors.Is(err, accounts.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	case errors.Is(err, ledger.ErrUsernameTaken):
		writeError(c, http.StatusConflict, "username_taken", "username already exists")
		return
	case err != nil:
		s.internalError(c, "register", err)
		return
	}

	s.startSession(c, http.StatusCreated, acct)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}

	acct, err := s.deps.Accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(c, http.StatusForbidden, "invalid_credentials", err.Error())
		return
	case err != nil:
		s.internalError(c, "login", err)
		return
	}

	s.startSession(c, http.StatusOK, acct)
}

func (s *Server) startSession(c *gin.Context, status int, acct trading.Account) {
	token, err := s.deps.Sessions.Create(c.Request.Context(), acct.ID)
	if err != nil {
		s.internalError(c, "create session", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, 0, "/", "", false, true)
	c.JSON(status, sessionResponse{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Cash:        acct.Cash.StringFixed(2),
		CashDisplay: trading.DisplayUSD(acct.Cash),
		Token:       token,
	})
}

func (s *Server) logout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if err := s.deps.Sessions.Delete(c.Request.Context(), token); err != nil {
			s.internalError(c, "logout", err)
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) quote(c *gin.Context) {
	symbol := trading.NormalizeSymbol(c.Query("symbol"))
	if symbol == "" {
		writeError(c, http.StatusBadRequest, "invalid_input", "missing symbol")
		return
	}

	q, err := s.deps.Quotes.Lookup(c.Request.Context(), symbol)
	if err != nil {
		writeError(c, http.StatusBadGateway, string(settlement.ReasonQuoteUnavailable), "invalid symbol or quote unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":        q.Symbol,
		"name":          q.Name,
		"price":         q.Price.String(),
		"price_display": trading.DisplayUSD(q.Price),
		"as_of":         q.AsOf,
	})
}

func (s *Server) buy(c *gin.Context) {
	s.order(c, trading.SideBuy)
}

func (s *Server) sell(c *gin.Context) {
	s.order(c, trading.SideSell)
}

func (s *Server) order(c *gin.Context, side trading.Side) {
	var req orderRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, string(settlement.ReasonInvalidInput), "malformed request body")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(c, http.StatusBadRequest, string(settlement.ReasonInvalidInput), "missing symbol")
		return
	}
	shares, err := settlement.ParseQuantity(req.Shares.String())
	if err != nil {
		writeError(c, http.StatusBadRequest, string(settlement.ReasonInvalidInput), err.Error())
		return
	}

	settle := s.deps.Engine.Buy
	if side == trading.SideSell {
		settle = s.deps.Engine.Sell
	}
	res, err := settle(c.Request.Context(), accountID(c), req.Symbol, shares)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			writeError(c, http.StatusUnauthorized, "unauthorized", "account no longer exists")
			return
		}
		s.internalError(c, string(side), err)
		return
	}

	if !res.Settled() {
		c.JSON(rejectionStatus(res.Reason), rejectionResponse{
			State:   res.State,
			Reason:  res.Reason,
			Message: res.Detail,
			Side:    res.Side,
			Symbol:  res.Symbol,
			Shares:  res.Quantity,
		})
		return
	}

	c.JSON(http.StatusOK, orderResponse{
		State:         res.State,
		TradeID:       res.Trade.ID,
		Side:          res.Side,
		Symbol:        res.Symbol,
		Shares:        res.Quantity,
		Price:         res.Price.String(),
		PriceDisplay:  trading.DisplayUSD(res.Price),
		Amount:        res.Amount.StringFixed(2),
		AmountDisplay: trading.DisplayUSD(res.Amount),
		Cash:          res.Cash.StringFixed(2),
		CashDisplay:   trading.DisplayUSD(res.Cash),
	})
}

func rejectionStatus(reason settlement.Reason) int {
	if reason == settlement.ReasonQuoteUnavailable {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

func (s *Server) portfolio(c *gin.Context) {
	v, err := s.deps.Portfolio.Valuation(c.Request.Context(), accountID(c))
	if err != nil {
		s.internalError(c, "portfolio", err)
		return
	}

	resp := portfolioResponse{
		Holdings:      make([]holdingResponse, 0, len(v.Holdings)),
		Cash:          v.Cash.StringFixed(2),
		CashDisplay:   trading.DisplayUSD(v.Cash),
		Total:         v.Total.StringFixed(2),
		TotalDisplay:  trading.DisplayUSD(v.Total),
		HoldingsValue: v.HoldingsValue.StringFixed(2),
	}
	for _, h := range v.Holdings {
		row := holdingResponse{
			Symbol: h.Symbol,
			Name:   h.Name,
			Shares: h.Shares,
			Priced: h.Priced,
		}
		if h.Priced {
			row.Price = h.Price.String()
			row.PriceDisplay = trading.DisplayUSD(h.Price)
			row.Value = h.Value.StringFixed(2)
			row.ValueDisplay = trading.DisplayUSD(h.Value)
		}
		resp.Holdings = append(resp.Holdings, row)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) history(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 0, 1, maxHistoryLimit)
	trades, err := s.deps.Ledger.Trades(c.Request.Context(), accountID(c), limit)
	if err != nil {
		s.internalError(c, "history", err)
		return
	}

	rows := make([]historyRow, 0, len(trades))
	for _, t := range trades {
		shares := t.Quantity
		if shares < 0 {
			shares = -shares
		}
		rows = append(rows, historyRow{
			ID:           t.ID,
			Side:         t.Side(),
			Symbol:       t.Symbol,
			Shares:       shares,
			Price:        t.Price.String(),
			PriceDisplay: trading.DisplayUSD(t.Price),
			ExecutedAt:   t.ExecutedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trades": rows})
}

func parseLimit(v string, def, min, max int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}
