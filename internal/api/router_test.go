package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/api"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/api/handlers"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/repository"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/service"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Map-backed stores standing in for the Postgres repositories. They honor
// the same contracts: pgx.ErrNoRows for missing rows, date-descending
// listing and one-way upload status transitions.

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func (s *fakeUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

type fakeTransactions struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]models.Transaction
}

func (s *fakeTransactions) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *fakeTransactions) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tx, nil
}

func (s *fakeTransactions) Update(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *fakeTransactions) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transactions, id)
	return nil
}

func (s *fakeTransactions) matching(userID uuid.UUID, dr *repository.DateRange) []models.Transaction {
	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if dr != nil && (tx.Date.Before(dr.Start) || tx.Date.After(dr.End)) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *fakeTransactions) ListByUser(_ context.Context, userID uuid.UUID, dr *repository.DateRange, limit, offset int) ([]*models.Transaction, error) {
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
	out := make([]*models.Transaction, 0, end-offset)
	for i := offset; i < end; i++ {
		tx := all[i]
		out = append(out, &tx)
	}
	return out, nil
}

func (s *fakeTransactions) CountByUser(_ context.Context, userID uuid.UUID, dr *repository.DateRange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(userID, dr)), nil
}

func (s *fakeTransactions) ExpensesByCategory(_ context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.CategoryTotal, error) {
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

func (s *fakeTransactions) TotalsByType(_ context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.TypeTotal, error) {
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

func (s *fakeTransactions) DailyExpenses(_ context.Context, userID uuid.UUID, dr *repository.DateRange) ([]dto.DailyTotal, error) {
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

type fakeUploads struct {
	mu      sync.Mutex
	uploads map[uuid.UUID]models.Upload
}

func (s *fakeUploads) Create(_ context.Context, u *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[u.ID] = *u
	return nil
}

func (s *fakeUploads) GetByID(_ context.Context, id uuid.UUID) (*models.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (s *fakeUploads) transition(id uuid.UUID, from []models.UploadStatus, apply func(*models.Upload)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, status := range from {
		if u.Status == status {
			apply(&u)
			s.uploads[id] = u
			return nil
		}
	}
	return repository.ErrStaleTransition
}

func (s *fakeUploads) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return s.transition(id, []models.UploadStatus{models.UploadStatusPending}, func(u *models.Upload) {
		u.Status = models.UploadStatusProcessing
	})
}

func (s *fakeUploads) MarkCompleted(_ context.Context, id, transactionID uuid.UUID) error {
	return s.transition(id, []models.UploadStatus{models.UploadStatusProcessing}, func(u *models.Upload) {
		u.Status = models.UploadStatusCompleted
		txID := transactionID
		u.TransactionID = &txID
	})
}

func (s *fakeUploads) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	return s.transition(id, []models.UploadStatus{models.UploadStatusPending, models.UploadStatusProcessing}, func(u *models.Upload) {
		u.Status = models.UploadStatusFailed
		u.ErrorMessage = message
	})
}

type stubExtractor struct {
	data *service.ReceiptData
	err  error
}

func (s *stubExtractor) ExtractReceipt(context.Context, []byte, string) (*service.ReceiptData, error) {
	return s.data, s.err
}

func newTestApp(t *testing.T, extractor service.ReceiptExtractor) *fiber.App {
	t.Helper()
	log := zap.NewNop()

	users := &fakeUsers{users: make(map[uuid.UUID]models.User)}
	transactions := &fakeTransactions{transactions: make(map[uuid.UUID]models.Transaction)}
	uploads := &fakeUploads{uploads: make(map[uuid.UUID]models.Upload)}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authService := service.NewAuthService(users, jwtManager, log)
	txService := service.NewTransactionService(transactions, log)
	ingestService := service.NewIngestService(uploads, transactions, extractor, t.TempDir(), 1600, time.Minute, log)

	return api.SetupRouter(
		handlers.NewAuthHandler(authService, log),
		handlers.NewTransactionHandler(txService, log),
		handlers.NewUploadHandler(ingestService, log),
		jwtManager,
		authService,
		log,
	)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp, raw := doJSON(t, app, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var authResp dto.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &authResp))
	require.NotEmpty(t, authResp.Token)
	return authResp.Token
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t, &stubExtractor{})

	registerUser(t, app, "alice@example.com")

	// Same email again conflicts.
	resp, _ := doJSON(t, app, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Name: "Someone Else", Email: "alice@example.com", Password: "other456",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodPost, "/auth/login", "", dto.LoginRequest{
		Email: "alice@example.com", Password: "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &authResp))
	assert.Equal(t, "alice@example.com", authResp.Email)
	assert.NotEmpty(t, authResp.Token)

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/login", "", dto.LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RequiresToken(t *testing.T) {
	app := newTestApp(t, &stubExtractor{})

	resp, _ := doJSON(t, app, http.MethodGet, "/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/transactions", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A well-formed token signed with another secret is rejected too.
	other := auth.NewJWTManager("other-secret", time.Hour)
	forged, err := other.GenerateToken(uuid.NewString())
	require.NoError(t, err)
	resp, _ = doJSON(t, app, http.MethodGet, "/transactions", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_TransactionLifecycle(t *testing.T) {
	app := newTestApp(t, &stubExtractor{})
	token := registerUser(t, app, "bob@example.com")

	resp, raw := doJSON(t, app, http.MethodPost, "/transactions", token, dto.CreateTransactionRequest{
		Type: "expense", Category: "Groceries", Amount: 54.30, Date: "2025-08-14", Description: "Market",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created dto.TransactionResponse
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, 54.30, created.Amount)

	resp, raw = doJSON(t, app, http.MethodGet, "/transactions?page=1&limit=10", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list dto.TransactionListResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, created.ID, list.Transactions[0].ID)
	assert.Equal(t, 1, list.TotalPages)

	resp, raw = doJSON(t, app, http.MethodPut, "/transactions/"+created.ID, token, dto.UpdateTransactionRequest{
		Amount: 60,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated dto.TransactionResponse
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, 60.0, updated.Amount)
	assert.Equal(t, "Groceries", updated.Category)

	resp, raw = doJSON(t, app, http.MethodGet, "/transactions/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats dto.TransactionStatsResponse
	require.NoError(t, json.Unmarshal(raw, &stats))
	require.Len(t, stats.ExpensesByCategory, 1)
	assert.Equal(t, 60.0, stats.ExpensesByCategory[0].Total)

	resp, _ = doJSON(t, app, http.MethodDelete, "/transactions/"+created.ID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/transactions/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_TransactionOwnership(t *testing.T) {
	app := newTestApp(t, &stubExtractor{})
	alice := registerUser(t, app, "alice@example.com")
	mallory := registerUser(t, app, "mallory@example.com")

	_, raw := doJSON(t, app, http.MethodPost, "/transactions", alice, dto.CreateTransactionRequest{
		Type: "expense", Amount: 10, Date: "2025-08-14",
	})
	var created dto.TransactionResponse
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, _ := doJSON(t, app, http.MethodPut, "/transactions/"+created.ID, mallory, dto.UpdateTransactionRequest{Amount: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/transactions/"+created.ID, mallory, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func uploadReceipt(t *testing.T, app *fiber.App, token, filename, contentType string) (*http.Response, []byte) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("receipt-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/uploads", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func TestRouter_UploadRejectsUnsupportedFiles(t *testing.T) {
	app := newTestApp(t, &stubExtractor{})
	token := registerUser(t, app, "carol@example.com")

	resp, raw := uploadReceipt(t, app, token, "notes.txt", "text/plain")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "You can only upload images")

	// Image extension with a non-image content type is rejected as well.
	resp, _ = uploadReceipt(t, app, token, "sneaky.jpg", "text/plain")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_UploadPipeline(t *testing.T) {
	app := newTestApp(t, &stubExtractor{data: &service.ReceiptData{
		Amount:      23.45,
		Date:        time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
		Description: "Corner Cafe",
		Category:    "Dining",
	}})
	token := registerUser(t, app, "dave@example.com")

	resp, raw := uploadReceipt(t, app, token, "receipt.jpg", "image/jpeg")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var accepted dto.UploadAcceptedResponse
	require.NoError(t, json.Unmarshal(raw, &accepted))
	require.NotEmpty(t, accepted.UploadID)

	var status dto.UploadStatusResponse
	require.Eventually(t, func() bool {
		resp, raw := doJSON(t, app, http.MethodGet, "/uploads/"+accepted.UploadID+"/status", token, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(raw, &status); err != nil {
			return false
		}
		return status.Status == "completed" || status.Status == "failed"
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, "completed", status.Status)
	require.NotNil(t, status.Transaction)
	assert.Equal(t, 23.45, status.Transaction.Amount)
	assert.Equal(t, "Corner Cafe", status.Transaction.Description)
	assert.Nil(t, status.ErrorMessage)

	// The extracted transaction shows up in the regular listing.
	listResp, listRaw := doJSON(t, app, http.MethodGet, "/transactions", token, nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var list dto.TransactionListResponse
	require.NoError(t, json.Unmarshal(listRaw, &list))
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, "expense", list.Transactions[0].Type)
}

func TestRouter_UploadStatusOwnership(t *testing.T) {
	app := newTestApp(t, &stubExtractor{data: &service.ReceiptData{
		Amount: 5, Date: time.Now().UTC(), Description: "x", Category: "Other",
	}})
	owner := registerUser(t, app, "erin@example.com")
	other := registerUser(t, app, "frank@example.com")

	_, raw := uploadReceipt(t, app, owner, "receipt.png", "image/png")
	var accepted dto.UploadAcceptedResponse
	require.NoError(t, json.Unmarshal(raw, &accepted))

	resp, _ := doJSON(t, app, http.MethodGet, "/uploads/"+accepted.UploadID+"/status", other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/uploads/"+uuid.NewString()+"/status", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
