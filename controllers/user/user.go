package user

import (
	"wingo/controllers"
	"wingo/helpers"
	"wingo/middlewares"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	wallet   *services.Wallet
	referral *services.ReferralProcessor
	log      *zap.Logger
}

func NewHandler(wallet *services.Wallet, referral *services.ReferralProcessor, log *zap.Logger) *Handler {
	return &Handler{wallet: wallet, referral: referral, log: log.Named("user")}
}

func (h *Handler) CheckUserBalance(c *fiber.Ctx) error {
	userID, _ := middlewares.UserID(c)

	balance, err := h.wallet.Balance(c.UserContext(), userID)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Balance retrieved successfully", fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, _ := middlewares.UserID(c)
	limit, offset := controllers.Page(c)

	rows, total, err := h.wallet.Transactions(c.UserContext(), userID, limit, offset)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONPage(c, "Transactions retrieved successfully", rows, total, limit, offset)
}

func (h *Handler) ReferralInfo(c *fiber.Ctx) error {
	userID, _ := middlewares.UserID(c)

	info, err := h.referral.Info(c.UserContext(), userID)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Referral info retrieved successfully", info)
}

func (h *Handler) ReferralEarnings(c *fiber.Ctx) error {
	userID, _ := middlewares.UserID(c)
	limit, offset := controllers.Page(c)

	rows, total, err := h.referral.Earnings(c.UserContext(), userID, limit, offset)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONPage(c, "Referral earnings retrieved successfully", rows, total, limit, offset)
}
