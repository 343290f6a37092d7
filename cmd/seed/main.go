package main

import (
	"context"
	"log"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/repository"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/auth"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/config"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/logger"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo1234"
)

// Seeds a demo user with a month of sample transactions so the dashboard
// charts have data to show.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if err := postgres.RunMigrations(&cfg.Database); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)

	if existing, _ := userRepo.GetByEmail(ctx, demoEmail); existing != nil {
		appLogger.Info("Demo user already exists, nothing to do")
		return
	}

	hashed, err := auth.HashPassword(demoPassword)
	if err != nil {
		appLogger.Fatal("Failed to hash password", zap.Error(err))
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		Name:      "Demo User",
		Email:     demoEmail,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		appLogger.Fatal("Failed to create demo user", zap.Error(err))
	}

	type sample struct {
		txType      models.TransactionType
		category    string
		amount      float64
		daysAgo     int
		description string
	}

	samples := []sample{
		{models.TransactionTypeIncome, "Salary", 4200, 28, "Monthly salary"},
		{models.TransactionTypeExpense, "Groceries", 86.40, 26, "Weekly groceries"},
		{models.TransactionTypeExpense, "Dining", 32.50, 24, "Dinner out"},
		{models.TransactionTypeExpense, "Gas", 54.00, 21, "Fuel"},
		{models.TransactionTypeExpense, "Groceries", 73.15, 19, "Weekly groceries"},
		{models.TransactionTypeExpense, "Shopping", 129.99, 15, "Headphones"},
		{models.TransactionTypeIncome, "Freelance", 650, 12, "Side project invoice"},
		{models.TransactionTypeExpense, "Utilities", 98.30, 10, "Electricity bill"},
		{models.TransactionTypeExpense, "Dining", 18.75, 7, "Lunch"},
		{models.TransactionTypeExpense, "Groceries", 91.20, 4, "Weekly groceries"},
		{models.TransactionTypeExpense, "Other", 12.00, 1, "Parking"},
	}

	for _, s := range samples {
		tx := &models.Transaction{
			ID:          uuid.New(),
			UserID:      user.ID,
			Type:        s.txType,
			Category:    s.category,
			Amount:      s.amount,
			Date:        now.AddDate(0, 0, -s.daysAgo),
			Description: s.description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := txRepo.Create(ctx, tx); err != nil {
			appLogger.Fatal("Failed to create sample transaction", zap.Error(err))
		}
	}

	appLogger.Info("Seeding completed",
		zap.String("email", demoEmail),
		zap.Int("transactions", len(samples)),
	)
}
