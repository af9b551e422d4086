package routes

import (
	"wingo/controllers/admin"
	"wingo/controllers/game"
	"wingo/controllers/payment"
	"wingo/controllers/user"
	"wingo/middlewares"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Deps struct {
	Engines     services.Engines
	Wallet      *services.Wallet
	Referral    *services.ReferralProcessor
	Recharge    *services.RechargeService
	RateLimiter services.RateLimiter
	AdminSecret string
	Log         *zap.Logger
}

func Setup(app *fiber.App, d Deps) {
	games := game.NewHandler(d.Engines, d.Log)
	users := user.NewHandler(d.Wallet, d.Referral, d.Log)
	payments := payment.NewHandler(d.Recharge, d.Log)
	settings := admin.NewHandler(d.Engines, d.Log)

	gameroutes := app.Group("/api/:variant")
	gameroutes.Get("/period/current", games.CurrentPeriod)
	gameroutes.Get("/periods/history", games.PeriodHistory)
	gameroutes.Post("/bets", middlewares.UserAuthMiddleware, middlewares.BetRateLimit(d.RateLimiter, d.Log), games.PlaceBet)
	gameroutes.Get("/bets/period/:periodId", middlewares.UserAuthMiddleware, games.PeriodBets)
	gameroutes.Get("/bets/history", middlewares.UserAuthMiddleware, games.BetHistory)

	userroutes := app.Group("/user", middlewares.UserAuthMiddleware)
	userroutes.Get("/balance", users.CheckUserBalance)
	userroutes.Get("/transactions", users.Transactions)
	userroutes.Get("/referrals", users.ReferralInfo)
	userroutes.Get("/referrals/earnings", users.ReferralEarnings)

	app.Post("/payment/recharge", middlewares.UserAuthMiddleware, payments.InitiateRecharge)
	app.Post("/payment/callback", payments.Callback)

	adminroutes := app.Group("/admin/:variant", middlewares.AdminAuth(d.AdminSecret))
	adminroutes.Get("/settings", settings.GetSettings)
	adminroutes.Put("/settings", settings.UpdateSettings)
}
