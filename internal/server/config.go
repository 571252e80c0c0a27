package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/bequest/internal/plan"
)

type oracleRequest struct {
	Oracle plan.Identity `json:"oracle" binding:"required"`
}

// feeRequest takes the fee as a decimal string so values above 2^53 survive
// JSON clients that parse numbers as doubles.
type feeRequest struct {
	Fee string `json:"fee" binding:"required"`
}

type configResponse struct {
	Oracle       plan.Identity `json:"oracle,omitempty"`
	ExecutionFee string        `json:"execution_fee"`
	PlanCount    uint64        `json:"plan_count"`
	PlanCapacity uint64        `json:"plan_capacity"`
}

func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.Engine.GetConfig(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, configResponse{
		Oracle:       cfg.Oracle,
		ExecutionFee: strconv.FormatUint(cfg.ExecutionFee, 10),
		PlanCount:    cfg.PlanCount,
		PlanCapacity: cfg.PlanCapacity,
	})
}

func (h *Handler) SetOracle(c *gin.Context) {
	var req oracleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Engine.SetOracle(c.Request.Context(), caller(c), req.Oracle); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) SetExecutionFee(c *gin.Context) {
	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fee, err := strconv.ParseUint(req.Fee, 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Engine.SetExecutionFee(c.Request.Context(), caller(c), fee); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
