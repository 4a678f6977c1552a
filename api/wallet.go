package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/api/responses"
	"github.com/Aidin1998/finalex-console/internal/wallet/repository"
	"github.com/Aidin1998/finalex-console/internal/withdrawal"
	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

type openSessionRequest struct {
	WalletID string `json:"wallet_id" validate:"required"`
}

type selectCurrencyRequest struct {
	CurrencyID string `json:"currency_id" validate:"required"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type submitRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	SessionID uuid.UUID       `json:"session_id"`
	View      withdrawal.View `json:"view"`
}

// GET /api/v1/wallets?page=&limit=&name=&type=
func (s *Server) listWallets(c *gin.Context) {
	query := models.PageQuery{
		Page:    parseIntDefault(c.Query("page"), 1),
		Limit:   parseIntDefault(c.Query("limit"), repository.DefaultPageLimit),
		Filters: map[string]string{},
	}
	for _, key := range []string{"name", "type"} {
		if v := c.Query(key); v != "" {
			query.Filters[key] = v
		}
	}

	page, err := s.wallets.ListWallets(c.Request.Context(), query)
	if err != nil {
		s.writeError(c, err)
		return
	}
	perPage := query.Normalize(repository.DefaultPageLimit, repository.MaxPageLimit).Limit
	responses.Paginated(c, page.Data, responses.CreatePaginationMeta(page.Page, perPage, page.Total))
}

// GET /api/v1/wallets/:id
func (s *Server) getWallet(c *gin.Context) {
	wallet, err := s.wallets.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, wallet)
}

// POST /api/v1/withdrawals/sessions
func (s *Server) openSession(c *gin.Context) {
	var req openSessionRequest
	if !s.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	wallet, err := s.wallets.GetWallet(ctx, req.WalletID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	id, w, err := s.sessions.Create()
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := w.Open(ctx, wallet); err != nil {
		s.sessions.Remove(id)
		s.writeError(c, err)
		return
	}

	s.logger.Info("Withdrawal session opened",
		zap.String("session_id", id.String()),
		zap.String("wallet_id", wallet.ID))
	responses.Created(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// GET /api/v1/withdrawals/sessions/:id
func (s *Server) getSession(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// PUT /api/v1/withdrawals/sessions/:id/currency
func (s *Server) selectCurrency(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	var req selectCurrencyRequest
	if !s.bind(c, &req) {
		return
	}
	if err := w.SelectCurrency(c.Request.Context(), req.CurrencyID); err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// PUT /api/v1/withdrawals/sessions/:id/amount
func (s *Server) editAmount(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	var req amountRequest
	if !s.bind(c, &req) {
		return
	}
	if err := w.EditAmount(req.Amount); err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// GET /api/v1/withdrawals/sessions/:id/max
func (s *Server) maxAmount(c *gin.Context) {
	_, w, ok := s.session(c)
	if !ok {
		return
	}
	amount, err := w.MaxAmount()
	if err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, gin.H{"amount": amount.String()})
}

// POST /api/v1/withdrawals/sessions/:id/submit
func (s *Server) submitDraft(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	var req submitRequest
	if !s.bind(c, &req) {
		return
	}
	if _, err := w.Submit(c.Request.Context(), req.To, req.Amount); err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// POST /api/v1/withdrawals/sessions/:id/back
func (s *Server) back(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	if err := w.Back(); err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// POST /api/v1/withdrawals/sessions/:id/confirm
func (s *Server) confirm(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	if err := w.Confirm(); err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()})
}

// POST /api/v1/withdrawals/sessions/:id/code
func (s *Server) confirmCode(c *gin.Context) {
	id, w, ok := s.session(c)
	if !ok {
		return
	}
	var req codeRequest
	if !s.bind(c, &req) {
		return
	}
	if _, err := w.ConfirmCode(c.Request.Context(), req.Code); err != nil {
		s.writeError(c, err)
		return
	}
	responses.Success(c, sessionResponse{SessionID: id, View: w.Snapshot()}, "Withdrawal submitted")
}

// DELETE /api/v1/withdrawals/sessions/:id
func (s *Server) closeSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.BadRequest(c, "invalid session id")
		return
	}
	if !s.sessions.Remove(id) {
		s.writeError(c, errors.ErrNotFound.Explain("session %s not found", id))
		return
	}
	responses.NoContent(c)
}

func (s *Server) session(c *gin.Context) (uuid.UUID, *withdrawal.Wizard, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.BadRequest(c, "invalid session id")
		return uuid.Nil, nil, false
	}
	w, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(c, err)
		return uuid.Nil, nil, false
	}
	return id, w, true
}

// bind decodes the JSON body into req and runs struct validation.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		responses.BadRequest(c, "malformed request body")
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		responses.BadRequest(c, err.Error())
		return false
	}
	return true
}

func (s *Server) writeError(c *gin.Context, err error) {
	if status := errors.Problem(err, "").Status; status >= http.StatusInternalServerError {
		s.logger.Error("handler error", zap.Error(err), zap.String("path", c.Request.URL.Path))
	} else {
		s.logger.Debug("request rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	responses.Error(c, err)
}

func parseIntDefault(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
