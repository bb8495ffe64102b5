package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/org-wallet/internal/eligibility"
	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/richardliu001/org-wallet/internal/repo"
	"github.com/richardliu001/org-wallet/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type handlers struct {
	svc *service.WalletService
	log *zap.SugaredLogger
}

func RegisterHandlers(g *gin.RouterGroup, svc *service.WalletService, log *zap.SugaredLogger) {
	h := &handlers{svc: svc, log: log}
	org := g.Group("/orgs/:orgId")
	{
		org.GET("/wallet", h.getWallet)
		org.GET("/wallet/balance", h.balance)
		org.GET("/wallet/stats", h.stats)
		org.GET("/wallet/audit", h.audit)
		org.POST("/wallet/fund", h.fund)
		org.POST("/wallet/disburse", h.disburse)
		org.POST("/wallet/disburse/bulk", h.bulkDisburse)
		org.PUT("/wallet/status", h.setStatus)
		org.GET("/eligible-members", h.eligibleMembers)
	}
	g.GET("/transactions", h.transactions)
}

func orgParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("orgId"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid orgId")
		return 0, false
	}
	return id, true
}

func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, "invalid amount")
		return decimal.Zero, false
	}
	return amt, true
}

func (h *handlers) getWallet(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	w, err := h.svc.GetOrgWallet(c.Request.Context(), currentUser(c), orgID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *handlers) balance(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	bal, err := h.svc.GetBalance(c.Request.Context(), currentUser(c), orgID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orgId": orgID, "balance": bal})
}

func (h *handlers) stats(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), currentUser(c), orgID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) audit(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	a, err := h.svc.VerifyLedger(c.Request.Context(), currentUser(c), orgID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type fundReq struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
}

func (h *handlers) fund(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	var req fundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	amt, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	tx, err := h.svc.Fund(c.Request.Context(), service.FundInput{
		OrgID: orgID, Amount: amt, Description: req.Description, ActorID: currentUser(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

type disburseReq struct {
	RecipientUserID uint64 `json:"recipientUserId" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	Description     string `json:"description"`
}

func (h *handlers) disburse(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	var req disburseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	amt, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	res, err := h.svc.Disburse(c.Request.Context(), service.DisburseInput{
		OrgID: orgID, RecipientUserID: req.RecipientUserID, Amount: amt,
		Description: req.Description, ActorID: currentUser(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type bulkReq struct {
	Recipients []disburseReq `json:"recipients" binding:"dive"`
}

func (h *handlers) bulkDisburse(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	var req bulkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := service.BulkDisburseInput{OrgID: orgID, ActorID: currentUser(c)}
	for _, r := range req.Recipients {
		amt, ok := parseAmount(c, r.Amount)
		if !ok {
			return
		}
		in.Recipients = append(in.Recipients, service.BulkRecipient{
			RecipientUserID: r.RecipientUserID, Amount: amt, Description: r.Description,
		})
	}
	res, err := h.svc.BulkDisburse(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *handlers) setStatus(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	w, err := h.svc.SetStatus(c.Request.Context(), service.StatusInput{
		OrgID: orgID, Status: model.WalletStatus(req.Status), Reason: req.Reason, ActorID: currentUser(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// optionalID reads a positive integer query parameter.
func optionalID(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func (h *handlers) eligibleMembers(c *gin.Context) {
	orgID, ok := orgParam(c)
	if !ok {
		return
	}
	var f eligibility.Filter
	for name, dst := range map[string]**uint64{
		"stateId":               &f.StateID,
		"lgaId":                 &f.LGAID,
		"wardId":                &f.WardID,
		"pollingUnitId":         &f.PollingUnitID,
		"geopoliticalZoneId":    &f.GeopoliticalZoneID,
		"senatorialZoneId":      &f.SenatorialZoneID,
		"federalConstituencyId": &f.FederalConstituencyID,
	} {
		if *dst, ok = optionalID(c, name); !ok {
			return
		}
	}
	f.VerifiedOnly = c.Query("verifiedOnly") == "true"

	members, err := h.svc.EligibleMembers(c.Request.Context(), currentUser(c), orgID, f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": members, "total": len(members)})
}

func (h *handlers) transactions(c *gin.Context) {
	var f repo.TxFilter
	var ok bool
	if f.WalletID, ok = optionalID(c, "walletId"); !ok {
		return
	}
	if v := c.Query("type"); v != "" {
		t := model.TransactionType(v)
		if t != model.Credit && t != model.Debit {
			badRequest(c, "invalid type")
			return
		}
		f.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := model.TransactionStatus(v)
		f.Status = &s
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "invalid "+name)
			return
		}
		*dst = &t
	}
	for name, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid "+name)
			return
		}
		*dst = n
	}

	page, err := h.svc.ListTransactions(c.Request.Context(), currentUser(c), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
