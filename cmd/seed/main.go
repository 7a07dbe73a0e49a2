package main

import (
	"errors"
	"time"

	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/models"
	"github.com/trolley-watch/internal/repository"
	"github.com/trolley-watch/internal/service"
)

type trolleySeed struct {
	Code   string
	Status string
	Cart   string
}

var trolleySeeds = []trolleySeed{
	{Code: "TR-001", Status: constants.TrolleyStatusInUse, Cart: "65f0c1a2b3d4e5f601234567"},
	{Code: "TR-002", Status: constants.TrolleyStatusAvailable},
	{Code: "TR-003", Status: constants.TrolleyStatusAvailable},
	{Code: "TR-004", Status: constants.TrolleyStatusMaintenance},
}

var operatorSeeds = map[string]string{
	"floor-viewer":  constants.OperatorRoleViewer,
	"floor-auditor": constants.OperatorRoleAuditor,
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	trolleyRepo := repository.NewTrolleyRepository(models.DB)
	sessionRepo := repository.NewShoppingSessionRepository(models.DB)
	trolleyService := service.NewTrolleyService(trolleyRepo, sessionRepo)
	authService := service.NewOperatorAuthService(&cfg.JWT, repository.NewOperatorRepository(models.DB))

	// 推车
	for _, seed := range trolleySeeds {
		input := service.UpsertTrolleyInput{Code: seed.Code, Status: seed.Status}
		if seed.Cart != "" {
			cart := seed.Cart
			input.CurrentCart = &cart
		}
		if _, err := trolleyService.Upsert(input); err != nil {
			stdLog.Printf("Failed to upsert trolley %s: %v", seed.Code, err)
			continue
		}
		stdLog.Printf("Upserted trolley: %s (%s)", seed.Code, seed.Status)
	}

	// 操作员
	for username, role := range operatorSeeds {
		if _, err := authService.CreateOperator(username, role); err != nil {
			if errors.Is(err, service.ErrOperatorExists) {
				stdLog.Printf("Operator already exists: %s", username)
				continue
			}
			stdLog.Printf("Failed to create operator %s: %v", username, err)
			continue
		}
		stdLog.Printf("Created operator: %s (%s)", username, role)
	}

	// 历史购物记录
	for _, session := range demoSessions(time.Now()) {
		_, total, err := sessionRepo.ListByTrolley(repository.SessionListFilter{
			TrolleyCode: session.TrolleyCode,
			Page:        1,
			PageSize:    1,
		})
		if err != nil {
			stdLog.Printf("Failed to check history for %s: %v", session.TrolleyCode, err)
			continue
		}
		if total > 0 {
			stdLog.Printf("History already exists: %s", session.TrolleyCode)
			continue
		}
		if err := sessionRepo.Create(&session); err != nil {
			stdLog.Printf("Failed to create history for %s: %v", session.TrolleyCode, err)
			continue
		}
		stdLog.Printf("Created history: %s %s", session.TrolleyCode, session.TotalPrice.String())
	}

	stdLog.Printf("Seed completed")
}

func demoProduct(id, code, name string, price float64) models.Product {
	return models.Product{
		ID:   id,
		Code: code,
		Name: name,
		Pricing: []models.Pricing{{
			SellingPrice: models.NewMoneyFromFloat(price),
			MRP:          models.NewMoneyFromFloat(price),
		}},
	}
}

func demoSessions(now time.Time) []models.ShoppingSession {
	milk := demoProduct("p-milk", "8901030865278", "Toned Milk 1L", 54)
	bread := demoProduct("p-bread", "8901725121235", "Whole Wheat Bread", 45)
	rice := demoProduct("p-rice", "8906001060108", "Basmati Rice 5kg", 620)

	build := func(code, cartID string, ago time.Duration, lines []models.PurchasedLine, flags models.IssueList) models.ShoppingSession {
		total := models.ZeroMoney()
		for _, line := range lines {
			total = total.Add(line.PriceAtPurchase.MulQuantity(line.Quantity))
		}
		return models.ShoppingSession{
			TrolleyCode:   code,
			CartID:        cartID,
			VerifiedTime:  now.Add(-ago),
			TotalPrice:    total,
			PaymentMethod: "upi",
			CartItems:     lines,
			Flags:         flags,
		}
	}

	return []models.ShoppingSession{
		build("TR-002", "65f0c1a2b3d4e5f600000001", 26*time.Hour, []models.PurchasedLine{
			{Product: milk, Quantity: 2, PriceAtPurchase: models.NewMoneyFromFloat(54)},
			{Product: bread, Quantity: 1, PriceAtPurchase: models.NewMoneyFromFloat(45)},
		}, nil),
		build("TR-003", "65f0c1a2b3d4e5f600000002", 3*time.Hour, []models.PurchasedLine{
			{Product: rice, Quantity: 1, PriceAtPurchase: models.NewMoneyFromFloat(620)},
		}, models.IssueList{{Issue: "weight mismatch", FlaggedAt: now.Add(-3*time.Hour - 5*time.Minute)}}),
	}
}
