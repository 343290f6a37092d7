package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type transactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, dr *repository.DateRange, limit, offset int) ([]*models.Transaction, error)
	CountByUser(ctx context.Context, userID uuid.UUID, dr *repository.DateRange) (int, error)
	ExpensesByCategory(ctx context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.CategoryTotal, error)
	TotalsByType(ctx context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.TypeTotal, error)
	DailyExpenses(ctx context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.DailyTotal, error)
}

type TransactionService struct {
	transactions transactionStore
	logger       *zap.Logger
}

func NewTransactionService(transactions transactionStore, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		logger:       logger,
	}
}

type ListParams struct {
	Page      int
	Limit     int
	StartDate string
	EndDate   string
}

func (s *TransactionService) Create(ctx context.Context, owner uuid.UUID, req *dto.CreateTransactionRequest) (*dto.TransactionResponse, error) {
	txType := models.TransactionType(req.Type)
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: type must be income or expense", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", ErrValidation)
	}

	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:          uuid.New(),
		UserID:      owner,
		Type:        txType,
		Category:    category,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	return toTransactionResponse(tx), nil
}

func (s *TransactionService) List(ctx context.Context, owner uuid.UUID, params ListParams) (*dto.TransactionListResponse, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 10
	}

	dr, err := dayRange(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	count, err := s.transactions.CountByUser(ctx, owner, dr)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactions.ListByUser(ctx, owner, dr, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TransactionResponse, len(transactions))
	for i, tx := range transactions {
		responses[i] = *toTransactionResponse(tx)
	}

	totalPages := (count + limit - 1) / limit

	return &dto.TransactionListResponse{
		Transactions: responses,
		TotalPages:   totalPages,
		CurrentPage:  page,
	}, nil
}

func (s *TransactionService) Stats(ctx context.Context, owner uuid.UUID, startDate, endDate string) (*dto.TransactionStatsResponse, error) {
	dr, err := dayRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	byCategory, err := s.transactions.ExpensesByCategory(ctx, owner, dr)
	if err != nil {
		return nil, err
	}

	byType, err := s.transactions.TotalsByType(ctx, owner, dr)
	if err != nil {
		return nil, err
	}

	daily, err := s.transactions.DailyExpenses(ctx, owner, dr)
	if err != nil {
		return nil, err
	}

	return &dto.TransactionStatsResponse{
		ExpensesByCategory: byCategory,
		IncomeVsExpense:    byType,
		DailyExpenses:      daily,
	}, nil
}

// Update overwrites only the supplied fields. Zero values keep the prior
// value, so a zero amount or empty description cannot be stored through
// this path.
func (s *TransactionService) Update(ctx context.Context, owner, id uuid.UUID, req *dto.UpdateTransactionRequest) (*dto.TransactionResponse, error) {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if tx.UserID != owner {
		return nil, ErrForbidden
	}

	if req.Description != "" {
		tx.Description = req.Description
	}
	if req.Amount != 0 {
		if req.Amount < 0 {
			return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
		}
		tx.Amount = req.Amount
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date", ErrValidation)
		}
		tx.Date = date
	}
	if req.Category != "" {
		tx.Category = req.Category
	}
	tx.UpdatedAt = time.Now()

	if err := s.transactions.Update(ctx, tx); err != nil {
		return nil, err
	}

	return toTransactionResponse(tx), nil
}

func (s *TransactionService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if tx.UserID != owner {
		return ErrForbidden
	}

	return s.transactions.Delete(ctx, id)
}

func toTransactionResponse(tx *models.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Category:    tx.Category,
		Amount:      tx.Amount,
		Date:        tx.Date.UTC().Format(time.RFC3339),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// dayRange builds an inclusive filter covering the full UTC calendar days
// from startDate through endDate. Both bounds must be present for the
// filter to apply.
func dayRange(startDate, endDate string) (*repository.DateRange, error) {
	if startDate == "" || endDate == "" {
		return nil, nil
	}

	start, err := parseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid startDate", ErrValidation)
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endDate", ErrValidation)
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999000000, time.UTC)

	return &repository.DateRange{Start: start, End: end}, nil
}
