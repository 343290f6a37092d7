package service

import (
	"context"
	"sort"
	"sync"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// In-memory stores backing the service tests. They mirror the repository
// contracts, including pgx.ErrNoRows for missing rows and the one-way
// upload status transitions.

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *memUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

type memTransactionStore struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*models.Transaction
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{transactions: make(map[uuid.UUID]*models.Transaction)}
}

func (s *memTransactionStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tx
	s.transactions[tx.ID] = &copied
	return nil
}

func (s *memTransactionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *tx
	return &copied, nil
}

func (s *memTransactionStore) Update(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *tx
	s.transactions[tx.ID] = &copied
	return nil
}

func (s *memTransactionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transactions, id)
	return nil
}

func (s *memTransactionStore) matching(userID uuid.UUID, dr *repository.DateRange) []*models.Transaction {
	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if dr != nil && (tx.Date.Before(dr.Start) || tx.Date.After(dr.End)) {
			continue
		}
		copied := *tx
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *memTransactionStore) ListByUser(_ context.Context, userID uuid.UUID, dr *repository.DateRange, limit, offset int) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.matching(userID, dr)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memTransactionStore) CountByUser(_ context.Context, userID uuid.UUID, dr *repository.DateRange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(userID, dr)), nil
}

func (s *memTransactionStore) ExpensesByCategory(_ context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]float64{}
	for _, tx := range s.matching(userID, dr) {
		if tx.Type == models.TransactionTypeExpense {
			totals[tx.Category] += tx.Amount
		}
	}
	out := []dto.CategoryTotal{}
	for name, total := range totals {
		out = append(out, dto.CategoryTotal{Name: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memTransactionStore) TotalsByType(_ context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.TypeTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]float64{}
	for _, tx := range s.matching(userID, dr) {
		totals[string(tx.Type)] += tx.Amount
	}
	out := []dto.TypeTotal{}
	for name, total := range totals {
		out = append(out, dto.TypeTotal{Name: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memTransactionStore) DailyExpenses(_ context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.DailyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]float64{}
	for _, tx := range s.matching(userID, dr) {
		if tx.Type == models.TransactionTypeExpense {
			totals[tx.Date.UTC().Format("2006-01-02")] += tx.Amount
		}
	}
	out := []dto.DailyTotal{}
	for day, total := range totals {
		out = append(out, dto.DailyTotal{Date: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type memUploadStore struct {
	mu      sync.Mutex
	uploads map[uuid.UUID]*models.Upload
}

func newMemUploadStore() *memUploadStore {
	return &memUploadStore{uploads: make(map[uuid.UUID]*models.Upload)}
}

func (s *memUploadStore) Create(_ context.Context, upload *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *upload
	s.uploads[upload.ID] = &copied
	return nil
}

func (s *memUploadStore) GetByID(_ context.Context, id uuid.UUID) (*models.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (s *memUploadStore) transition(id uuid.UUID, from []models.UploadStatus, apply func(*models.Upload)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, status := range from {
		if u.Status == status {
			apply(u)
			return nil
		}
	}
	return repository.ErrStaleTransition
}

func (s *memUploadStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return s.transition(id, []models.UploadStatus{models.UploadStatusPending}, func(u *models.Upload) {
		u.Status = models.UploadStatusProcessing
	})
}

func (s *memUploadStore) MarkCompleted(_ context.Context, id, transactionID uuid.UUID) error {
	return s.transition(id, []models.UploadStatus{models.UploadStatusProcessing}, func(u *models.Upload) {
		u.Status = models.UploadStatusCompleted
		txID := transactionID
		u.TransactionID = &txID
	})
}

func (s *memUploadStore) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	return s.transition(id, []models.UploadStatus{models.UploadStatusPending, models.UploadStatusProcessing}, func(u *models.Upload) {
		u.Status = models.UploadStatusFailed
		u.ErrorMessage = message
	})
}
