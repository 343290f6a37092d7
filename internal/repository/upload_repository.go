package repository

import (
	"context"
	"errors"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrStaleTransition is returned when a status update does not apply
// because the upload already moved past the expected prior status.
// Completed and failed are terminal, so this guard makes the
// pending -> processing -> {completed, failed} progression one-way.
var ErrStaleTransition = errors.New("upload status transition no longer valid")

const uploadColumns = "id, user_id, filename, status, transaction_id, error_message, created_at, updated_at"

type UploadRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUploadRepository(db *pgxpool.Pool, logger *zap.Logger) *UploadRepository {
	return &UploadRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	query := squirrel.Insert("uploads").
		Columns("id", "user_id", "filename", "status", "transaction_id", "error_message", "created_at", "updated_at").
		Values(upload.ID, upload.UserID, upload.Filename, upload.Status, upload.TransactionID, upload.ErrorMessage, upload.CreatedAt, upload.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *UploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	query := squirrel.Select(uploadColumns).
		From("uploads").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var upload models.Upload
	var errorMessage *string
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&upload.ID, &upload.UserID, &upload.Filename, &upload.Status, &upload.TransactionID, &errorMessage, &upload.CreatedAt, &upload.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errorMessage != nil {
		upload.ErrorMessage = *errorMessage
	}

	return &upload, nil
}

func (r *UploadRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id,
		[]models.UploadStatus{models.UploadStatusPending},
		squirrel.Update("uploads").Set("status", models.UploadStatusProcessing))
}

func (r *UploadRepository) MarkCompleted(ctx context.Context, id, transactionID uuid.UUID) error {
	return r.transition(ctx, id,
		[]models.UploadStatus{models.UploadStatusProcessing},
		squirrel.Update("uploads").
			Set("status", models.UploadStatusCompleted).
			Set("transaction_id", transactionID))
}

func (r *UploadRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.transition(ctx, id,
		[]models.UploadStatus{models.UploadStatusPending, models.UploadStatusProcessing},
		squirrel.Update("uploads").
			Set("status", models.UploadStatusFailed).
			Set("error_message", message))
}

func (r *UploadRepository) transition(ctx context.Context, id uuid.UUID, from []models.UploadStatus, update squirrel.UpdateBuilder) error {
	query := update.
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "status": from}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Rejected stale upload transition", zap.String("upload_id", id.String()))
		return ErrStaleTransition
	}

	return nil
}
