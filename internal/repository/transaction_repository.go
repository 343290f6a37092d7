package repository

import (
	"context"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DateRange bounds a query to date >= Start and date <= End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

const transactionColumns = "id, user_id, type, category, amount, date, description, created_at, updated_at"

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns("id", "user_id", "type", "category", "amount", "date", "description", "created_at", "updated_at").
		Values(tx.ID, tx.UserID, tx.Type, tx.Category, tx.Amount, tx.Date, tx.Description, tx.CreatedAt, tx.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns).
		From("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&tx.ID, &tx.UserID, &tx.Type, &tx.Category, &tx.Amount, &tx.Date, &tx.Description, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &tx, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Update("transactions").
		Set("category", tx.Category).
		Set("amount", tx.Amount).
		Set("date", tx.Date).
		Set("description", tx.Description).
		Set("updated_at", tx.UpdatedAt).
		Where(squirrel.Eq{"id": tx.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func withDateRange(b squirrel.SelectBuilder, dr *DateRange) squirrel.SelectBuilder {
	if dr == nil {
		return b
	}
	return b.Where(squirrel.GtOrEq{"date": dr.Start}).Where(squirrel.LtOrEq{"date": dr.End})
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, dr *DateRange, limit, offset int) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns).
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("date DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)
	query = withDateRange(query, dr)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Type, &tx.Category, &tx.Amount, &tx.Date, &tx.Description, &tx.CreatedAt, &tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

func (r *TransactionRepository) CountByUser(ctx context.Context, userID uuid.UUID, dr *DateRange) (int, error) {
	query := squirrel.Select("COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)
	query = withDateRange(query, dr)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// ExpensesByCategory returns the total expense amount per category.
func (r *TransactionRepository) ExpensesByCategory(ctx context.Context, userID uuid.UUID, dr *DateRange) ([]dto.CategoryTotal, error) {
	query := squirrel.Select("category", "SUM(amount) AS total").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID, "type": models.TransactionTypeExpense}).
		GroupBy("category").
		PlaceholderFormat(squirrel.Dollar)
	query = withDateRange(query, dr)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []dto.CategoryTotal{}
	for rows.Next() {
		var t dto.CategoryTotal
		if err := rows.Scan(&t.Name, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

// TotalsByType returns the summed amount for each transaction type.
func (r *TransactionRepository) TotalsByType(ctx context.Context, userID uuid.UUID, dr *DateRange) ([]dto.TypeTotal, error) {
	query := squirrel.Select("type", "SUM(amount) AS total").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		GroupBy("type").
		PlaceholderFormat(squirrel.Dollar)
	query = withDateRange(query, dr)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []dto.TypeTotal{}
	for rows.Next() {
		var t dto.TypeTotal
		if err := rows.Scan(&t.Name, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

// DailyExpenses returns the total expense amount per UTC calendar day,
// sorted ascending by day.
func (r *TransactionRepository) DailyExpenses(ctx context.Context, userID uuid.UUID, dr *DateRange) ([]dto.DailyTotal, error) {
	query := squirrel.Select("to_char(date AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day", "SUM(amount) AS total").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID, "type": models.TransactionTypeExpense}).
		GroupBy("day").
		OrderBy("day ASC").
		PlaceholderFormat(squirrel.Dollar)
	query = withDateRange(query, dr)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []dto.DailyTotal{}
	for rows.Next() {
		var t dto.DailyTotal
		if err := rows.Scan(&t.Date, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}
