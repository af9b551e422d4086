package admin

import (
	"strings"

	"wingo/controllers"
	"wingo/helpers"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	engines services.Engines
	log     *zap.Logger
}

func NewHandler(engines services.Engines, log *zap.Logger) *Handler {
	return &Handler{engines: engines, log: log.Named("admin")}
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	engine, ok := h.engines.Get(strings.ToLower(c.Params("variant")))
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}

	settings, err := engine.Settings.Get(c.UserContext())
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Settings retrieved successfully", settings)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	engine, ok := h.engines.Get(strings.ToLower(c.Params("variant")))
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "GAME_NOT_FOUND")
	}

	var patch services.SettingsPatch
	if err := controllers.ParseBody(c, &patch); err != nil {
		return helpers.JSONError(c, err.Error())
	}

	settings, err := engine.Settings.Update(c.UserContext(), patch)
	if err != nil {
		return controllers.Error(c, h.log, err)
	}
	return helpers.JSONSuccess(c, "Settings updated successfully", settings)
}
