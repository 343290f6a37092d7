package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type uploadStore interface {
	Create(ctx context.Context, upload *models.Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id, transactionID uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

// IngestService runs the receipt pipeline: persist the file, record an
// Upload in pending, analyze the file in the background and either link a
// created expense transaction (completed) or record a failure message
// (failed). The stored file is removed in every case.
type IngestService struct {
	uploads      uploadStore
	transactions transactionStore
	extractor    ReceiptExtractor
	uploadDir    string
	maxImageSide int
	timeout      time.Duration
	logger       *zap.Logger
}

func NewIngestService(
	uploads uploadStore,
	transactions transactionStore,
	extractor ReceiptExtractor,
	uploadDir string,
	maxImageSide int,
	timeout time.Duration,
	logger *zap.Logger,
) *IngestService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &IngestService{
		uploads:      uploads,
		transactions: transactions,
		extractor:    extractor,
		uploadDir:    uploadDir,
		maxImageSide: maxImageSide,
		timeout:      timeout,
		logger:       logger,
	}
}

// SubmitReceipt stores the file, records the Upload in pending and kicks
// off background processing. It returns before the AI call happens; the
// caller polls Status until a terminal state appears.
func (s *IngestService) SubmitReceipt(ctx context.Context, userID uuid.UUID, file io.Reader, originalName, mimeType string) (*models.Upload, error) {
	uploadID := uuid.New()
	storedName := uploadID.String() + filepath.Ext(originalName)
	filePath := filepath.Join(s.uploadDir, storedName)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	dst.Close()

	now := time.Now()
	upload := &models.Upload{
		ID:        uploadID,
		UserID:    userID,
		Filename:  originalName,
		Status:    models.UploadStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.uploads.Create(ctx, upload); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	go s.processUpload(uploadID, userID, filePath, mimeType)

	return upload, nil
}

// processUpload drives one Upload to a terminal state. It runs detached
// from the request that created the Upload and is invoked exactly once per
// Upload, under its own deadline so a hung AI call cannot leave the record
// at processing forever.
func (s *IngestService) processUpload(uploadID, userID uuid.UUID, filePath, mimeType string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Cleanup always runs, success or failure.
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove uploaded file", zap.String("path", filePath), zap.Error(err))
		}
	}()

	if err := s.uploads.MarkProcessing(ctx, uploadID); err != nil {
		s.logger.Error("Failed to mark upload processing",
			zap.String("upload_id", uploadID.String()), zap.Error(err))
		// Best effort: without a terminal write the client polls pending
		// forever. A stale transition means another writer already moved
		// the upload, so leave it alone in that case.
		if !errors.Is(err, repository.ErrStaleTransition) {
			s.fail(ctx, uploadID, "Receipt processing could not be started.")
		}
		return
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		s.fail(ctx, uploadID, "Uploaded file could not be read.")
		return
	}

	content, mimeType = normalizeReceiptImage(content, mimeType, s.maxImageSide)

	data, err := s.extractor.ExtractReceipt(ctx, content, mimeType)
	if err != nil {
		s.logger.Warn("Receipt extraction failed",
			zap.String("upload_id", uploadID.String()), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			s.fail(ctx, uploadID, "Receipt analysis timed out.")
		} else {
			s.fail(ctx, uploadID, err.Error())
		}
		return
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        models.TransactionTypeExpense,
		Category:    data.Category,
		Amount:      data.Amount,
		Date:        data.Date,
		Description: data.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		s.logger.Error("Failed to save extracted transaction",
			zap.String("upload_id", uploadID.String()), zap.Error(err))
		s.fail(ctx, uploadID, "Failed to save the extracted transaction.")
		return
	}

	if err := s.uploads.MarkCompleted(ctx, uploadID, tx.ID); err != nil {
		s.logger.Error("Failed to mark upload completed",
			zap.String("upload_id", uploadID.String()), zap.Error(err))
		// The upload must not stay at processing. The extracted
		// transaction already exists; the failure message points the
		// user at it.
		if !errors.Is(err, repository.ErrStaleTransition) {
			s.fail(ctx, uploadID, "Receipt was analyzed but the result could not be linked.")
		}
		return
	}

	s.logger.Info("Receipt processed",
		zap.String("upload_id", uploadID.String()),
		zap.String("transaction_id", tx.ID.String()),
	)
}

func (s *IngestService) fail(ctx context.Context, uploadID uuid.UUID, message string) {
	// The terminal write must go through even when the pipeline deadline
	// already expired.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if err := s.uploads.MarkFailed(ctx, uploadID, message); err != nil {
		s.logger.Error("Failed to mark upload failed",
			zap.String("upload_id", uploadID.String()), zap.Error(err))
	}
}

// Status reports the Upload's current state together with the linked
// transaction once processing completed.
func (s *IngestService) Status(ctx context.Context, owner, id uuid.UUID) (*dto.UploadStatusResponse, error) {
	upload, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if upload.UserID != owner {
		return nil, ErrForbidden
	}

	resp := &dto.UploadStatusResponse{
		Status: string(upload.Status),
	}

	if upload.TransactionID != nil {
		tx, err := s.transactions.GetByID(ctx, *upload.TransactionID)
		switch {
		case err == nil:
			resp.Transaction = toTransactionResponse(tx)
		case errors.Is(err, pgx.ErrNoRows):
			// The linked transaction was deleted after processing; the
			// status still stands on its own.
		default:
			s.logger.Error("Failed to load linked transaction",
				zap.String("upload_id", id.String()), zap.Error(err))
			return nil, err
		}
	}

	if upload.ErrorMessage != "" {
		msg := upload.ErrorMessage
		resp.ErrorMessage = &msg
	}

	return resp, nil
}
