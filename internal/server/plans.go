package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/bequest/internal/plan"
)

type planRequest struct {
	Beneficiaries []plan.Beneficiary `json:"beneficiaries"`
	Conditions    []plan.Condition   `json:"conditions"`
	VaultID       uint64             `json:"vault_id"`
}

type executeRequest struct {
	// Proof is base64 in JSON.
	Proof []byte `json:"proof"`
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.Engine.CreatePlan(c.Request.Context(), caller(c), req.Beneficiaries, req.Conditions, req.VaultID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Engine.UpdatePlan(c.Request.Context(), caller(c), id, req.Beneficiaries, req.Conditions); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ExecutePlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Engine.ExecutePlan(c.Request.Context(), caller(c), id, req.Proof); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ClaimShare(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	share, err := h.Engine.ClaimShare(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"share": share})
}

func (h *Handler) GetPlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	p, found, err := h.Engine.GetPlan(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.Engine.ListPlans(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *Handler) GetExecution(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	exec, found, err := h.Engine.GetPlanExecution(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not executed"})
		return
	}
	c.JSON(http.StatusOK, exec)
}

// GetClaim answers with claimed=false for a beneficiary who has not claimed.
func (h *Handler) GetClaim(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	who := plan.Identity(c.Param("identity"))
	claim, found, err := h.Engine.GetBeneficiaryClaim(c.Request.Context(), id, who)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		claim = plan.Claim{PlanID: id, Beneficiary: who}
	}
	c.JSON(http.StatusOK, claim)
}

func (h *Handler) ListClaims(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	claims, err := h.Engine.ListClaims(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (h *Handler) AuditTrail(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}
	events, err := h.Engine.AuditTrail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
