package controllers

import (
	"errors"
	"strings"

	"wingo/helpers"
	"wingo/models"
	"wingo/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseBody decodes the JSON body into dst and runs its validate tags. The
// returned error is safe to show to the client.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return errors.New("INVALID_JSON")
	}
	if err := validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			names := make([]string, 0, len(fields))
			for _, f := range fields {
				names = append(names, f.Field())
			}
			return errors.New("INVALID_FIELDS: " + strings.Join(names, ","))
		}
		return err
	}
	return nil
}

// Error writes the envelope for a service error. Unknown errors are logged
// and hidden behind a 500.
func Error(c *fiber.Ctx, log *zap.Logger, err error) error {
	var betLimit *services.BetLimitError
	var rechargeLimit *services.RechargeLimitError

	switch {
	case errors.Is(err, models.ErrOutcomeRequired),
		errors.Is(err, models.ErrInvalidOutcome),
		errors.Is(err, services.ErrOutcomeNotOffered),
		errors.Is(err, services.ErrBettingClosed),
		errors.Is(err, services.ErrBettingEnded),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidSettings),
		errors.Is(err, services.ErrRechargeNotPending),
		errors.As(err, &betLimit),
		errors.As(err, &rechargeLimit):
		return helpers.JSONError(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPeriodNotFound),
		errors.Is(err, services.ErrRechargeNotFound),
		errors.Is(err, services.ErrSettingsNotFound):
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, err.Error())
	}

	log.Error("❌ Request failed", zap.String("path", c.Path()), zap.Error(err))
	return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "INTERNAL_ERROR")
}

// Page reads the limit and offset query parameters.
func Page(c *fiber.Ctx) (int, int) {
	return services.ClampPage(c.QueryInt("limit"), c.QueryInt("offset"))
}
