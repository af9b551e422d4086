package game

import (
	"strings"

	"wingo/controllers"
	"wingo/helpers"
	"wingo/middlewares"
	"wingo/models"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	engines services.Engines
	log     *zap.Logger
}

func NewHandler(engines services.Engines, log *zap.Logger) *Handler {
	return &Handler{engines: engines, log: log.Named("game")}
}

func (h *Handler) engine(c *fiber.Ctx) (*services.Engine, bool) {
	return h.engines.Get(strings.ToLower(c.Params("variant")))
}

func (h *Handler) CurrentPeriod(c *fiber.Ctx) error {
	engine, ok := h.engine(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}

	view, ok := engine.Scheduler.Current()
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusServiceUnavailable, "NO_ACTIVE_PERIOD")
	}
	return helpers.JSONSuccess(c, "Current period retrieved successfully", view)
}

type PlaceBetRequest struct {
	Color      *string         `json:"color" validate:"omitempty,oneof=green purple red"`
	Number     *int            `json:"number" validate:"omitempty,min=0,max=9"`
	BigOrSmall *string         `json:"big_or_small" validate:"omitempty,oneof=big small"`
	Amount     decimal.Decimal `json:"amount"`
}

func (h *Handler) PlaceBet(c *fiber.Ctx) error {
	engine, ok := h.engine(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}
	userID, ok := middlewares.UserID(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "USER_ID_REQUIRED")
	}

	var req PlaceBetRequest
	if err := controllers.ParseBody(c, &req); err != nil {
		return helpers.JSONError(c, err.Error())
	}

	outcome, err := models.ParseOutcome(req.Color, req.Number, req.BigOrSmall)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}

	bet, err := engine.Bets.PlaceBet(c.UserContext(), userID, outcome, req.Amount)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Bet placed successfully", bet)
}

func (h *Handler) PeriodBets(c *fiber.Ctx) error {
	engine, ok := h.engine(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}
	userID, _ := middlewares.UserID(c)

	bets, err := engine.Bets.UserBets(c.UserContext(), userID, c.Params("periodId"))
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Bets retrieved successfully", bets)
}

func (h *Handler) BetHistory(c *fiber.Ctx) error {
	engine, ok := h.engine(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}
	userID, _ := middlewares.UserID(c)
	limit, offset := controllers.Page(c)

	bets, total, err := engine.Bets.UserBetHistory(c.UserContext(), userID, limit, offset)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONPage(c, "Bet history retrieved successfully", bets, total, limit, offset)
}

func (h *Handler) PeriodHistory(c *fiber.Ctx) error {
	engine, ok := h.engine(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}
	limit, offset := controllers.Page(c)

	periods, total, err := engine.Bets.PeriodHistory(c.UserContext(), limit, offset)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONPage(c, "Period history retrieved successfully", periods, total, limit, offset)
}
