package routes_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"wingo/database"
	"wingo/helpers"
	"wingo/middlewares"
	"wingo/models"
	"wingo/providers/wingo"
	"wingo/routes"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const adminSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	log := zaptest.NewLogger(t)
	clock := helpers.NewManualClock(time.Date(2025, 1, 15, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+30*60)))

	wallet := services.NewWallet(db)
	primary := services.NewSettingsStore(db, wingo.ThreeMinute, log)
	referral := services.NewReferralProcessor(db, wallet, primary, log)
	engine := services.NewEngine(db, wingo.ThreeMinute, wallet, referral, services.EngineOptions{
		Clock:  clock,
		Random: helpers.SeededRandomizer(1),
	}, log)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Stop)

	app := fiber.New()
	routes.Setup(app, routes.Deps{
		Engines:     services.Engines{engine.Variant.Code: engine},
		Wallet:      wallet,
		Referral:    referral,
		Recharge:    services.NewRechargeService(db, wallet, primary, referral, log),
		AdminSecret: adminSecret,
		Log:         log,
	})
	return &server{t: t, app: app, db: db}
}

func (s *server) do(method, path, body string, headers map[string]string) (int, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, env
}

func (s *server) user(balance string) *models.User {
	s.t.Helper()
	u := models.User{Phone: "9000000001", Balance: decimal.RequireFromString(balance)}
	if err := s.db.Create(&u).Error; err != nil {
		s.t.Fatal(err)
	}
	return &u
}

func as(u *models.User) map[string]string {
	return map[string]string{"X-User-ID": strconv.FormatUint(uint64(u.ID), 10)}
}

func TestCurrentPeriod(t *testing.T) {
	srv := newServer(t)

	code, env := srv.do("GET", "/api/wingo3m/period/current", "", nil)
	if code != fiber.StatusOK || !env.Success {
		t.Fatalf("status = %d %s", code, env.Message)
	}
	var view services.PeriodView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.PeriodID != "20250115201" || !view.CanBet || view.TimeRemaining != 180 {
		t.Fatalf("view = %+v", view)
	}
	if strings.Contains(string(env.Data), "total_") {
		t.Fatalf("stake totals leaked: %s", env.Data)
	}

	if code, _ := srv.do("GET", "/api/nope/period/current", "", nil); code != fiber.StatusNotFound {
		t.Fatalf("unknown variant = %d", code)
	}
}

func TestPlaceBetEndpoint(t *testing.T) {
	srv := newServer(t)
	u := srv.user("1000")

	if code, _ := srv.do("POST", "/api/wingo3m/bets", `{"color":"green","amount":100}`, nil); code != fiber.StatusUnauthorized {
		t.Fatalf("anonymous bet = %d", code)
	}

	code, env := srv.do("POST", "/api/wingo3m/bets", `{"color":"green","amount":100}`, as(u))
	if code != fiber.StatusOK {
		t.Fatalf("bet = %d %s", code, env.Message)
	}
	var bet models.Bet
	if err := json.Unmarshal(env.Data, &bet); err != nil {
		t.Fatal(err)
	}
	if bet.PeriodID != "20250115201" || bet.Status != models.BetPending {
		t.Fatalf("bet = %+v", bet)
	}

	_, env = srv.do("GET", "/user/balance", "", as(u))
	var balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		t.Fatal(err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("balance = %s, want 900", balance.Balance)
	}

	_, env = srv.do("GET", "/api/wingo3m/bets/period/20250115201", "", as(u))
	var bets []models.Bet
	if err := json.Unmarshal(env.Data, &bets); err != nil || len(bets) != 1 {
		t.Fatalf("period bets = %s (%v)", env.Data, err)
	}
}

func TestPlaceBetRejections(t *testing.T) {
	srv := newServer(t)
	u := srv.user("1000")

	cases := []struct {
		name string
		body string
		want string
	}{
		{"two outcomes", `{"color":"green","number":3,"amount":100}`, models.ErrOutcomeRequired.Error()},
		{"no outcome", `{"amount":100}`, models.ErrOutcomeRequired.Error()},
		{"below minimum", `{"color":"red","amount":5}`, "minimum bet amount is 10"},
		{"above maximum", `{"color":"red","amount":20000}`, "maximum bet amount is 10000"},
		{"number on color-only game", `{"number":3,"amount":100}`, services.ErrOutcomeNotOffered.Error()},
		{"bad color", `{"color":"blue","amount":100}`, "INVALID_FIELDS: Color"},
		{"broken json", `{"color":`, "INVALID_JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := srv.do("POST", "/api/wingo3m/bets", tc.body, as(u))
			if code != fiber.StatusBadRequest || env.Message != tc.want {
				t.Fatalf("got %d %q, want 400 %q", code, env.Message, tc.want)
			}
		})
	}
}

func TestAdminSettings(t *testing.T) {
	srv := newServer(t)
	path := "/admin/wingo3m/settings"

	if code, _ := srv.do("GET", path, "", nil); code != fiber.StatusUnauthorized {
		t.Fatalf("unsigned get = %d", code)
	}

	sig := middlewares.Sign(adminSecret, "GET", path, nil)
	code, env := srv.do("GET", path, "", map[string]string{"X-Signature": sig})
	if code != fiber.StatusOK {
		t.Fatalf("signed get = %d %s", code, env.Message)
	}

	body := `{"min_bet_amount":"20"}`
	sig = middlewares.Sign(adminSecret, "PUT", path, []byte(body))
	code, env = srv.do("PUT", path, body, map[string]string{"X-Signature": sig})
	if code != fiber.StatusOK {
		t.Fatalf("update = %d %s", code, env.Message)
	}
	var settings models.GameSettings
	if err := json.Unmarshal(env.Data, &settings); err != nil {
		t.Fatal(err)
	}
	if !settings.MinBetAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("min bet = %s, want 20", settings.MinBetAmount)
	}

	body = `{"betting_duration_seconds":180}`
	sig = middlewares.Sign(adminSecret, "PUT", path, []byte(body))
	if code, _ := srv.do("PUT", path, body, map[string]string{"X-Signature": sig}); code != fiber.StatusBadRequest {
		t.Fatalf("invalid update = %d, want 400", code)
	}
}

func TestRechargeFlow(t *testing.T) {
	srv := newServer(t)
	u := srv.user("0")

	code, env := srv.do("POST", "/payment/recharge", `{"amount":500}`, as(u))
	if code != fiber.StatusOK {
		t.Fatalf("initiate = %d %s", code, env.Message)
	}
	var initiated struct {
		ReferenceID string `json:"reference_id"`
	}
	if err := json.Unmarshal(env.Data, &initiated); err != nil || initiated.ReferenceID == "" {
		t.Fatalf("reference = %s (%v)", env.Data, err)
	}

	callback := `{"reference":"` + initiated.ReferenceID + `","status":"success"}`
	if code, env := srv.do("POST", "/payment/callback", callback, nil); code != fiber.StatusOK {
		t.Fatalf("callback = %d %s", code, env.Message)
	}
	if code, env := srv.do("POST", "/payment/callback", `{"reference":"missing","status":"success"}`, nil); code != fiber.StatusNotFound {
		t.Fatalf("unknown reference = %d %s", code, env.Message)
	}

	var stored models.User
	srv.db.First(&stored, u.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s, want 500", stored.Balance)
	}

	if code, env := srv.do("POST", "/payment/recharge", `{"amount":100}`, as(u)); code != fiber.StatusBadRequest || env.Message != "minimum recharge amount is 200" {
		t.Fatalf("small recharge = %d %q", code, env.Message)
	}
}
