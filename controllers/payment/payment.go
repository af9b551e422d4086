package payment

import (
	"wingo/controllers"
	"wingo/helpers"
	"wingo/middlewares"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	recharge *services.RechargeService
	log      *zap.Logger
}

func NewHandler(recharge *services.RechargeService, log *zap.Logger) *Handler {
	return &Handler{recharge: recharge, log: log.Named("payment")}
}

type RechargeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) InitiateRecharge(c *fiber.Ctx) error {
	userID, _ := middlewares.UserID(c)

	var req RechargeRequest
	if err := controllers.ParseBody(c, &req); err != nil {
		return helpers.JSONError(c, err.Error())
	}

	trx, err := h.recharge.InitiateRecharge(c.UserContext(), userID, req.Amount)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Recharge initiated", fiber.Map{
		"reference_id": trx.ReferenceID,
		"amount":       trx.Amount,
		"status":       trx.Status,
	})
}

type CallbackRequest struct {
	Reference string `json:"reference" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=success failed"`
}

// Callback receives the gateway's final verdict on a recharge.
func (h *Handler) Callback(c *fiber.Ctx) error {
	var req CallbackRequest
	if err := controllers.ParseBody(c, &req); err != nil {
		return helpers.JSONError(c, err.Error())
	}

	var err error
	if req.Status == "success" {
		_, err = h.recharge.CompleteRecharge(c.UserContext(), req.Reference)
	} else {
		_, err = h.recharge.FailRecharge(c.UserContext(), req.Reference)
	}
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Callback processed", fiber.Map{
		"reference": req.Reference,
		"status":    req.Status,
	})
}
