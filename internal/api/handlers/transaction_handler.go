package handlers

import (
	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// Create godoc
// @Summary Create a transaction
// @Description Record a manual income or expense transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body dto.CreateTransactionRequest true "Transaction"
// @Security Bearer
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /transactions [post]
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.txService.Create(c.Context(), userID, &req)
	if err != nil {
		h.logger.Warn("Failed to create transaction", zap.Error(err))
		return serviceError(c, err, "Failed to create transaction")
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List transactions
// @Description Paginated transactions sorted by date descending, optionally bounded to a date range
// @Tags transactions
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Limit" default(10)
// @Param startDate query string false "Range start (YYYY-MM-DD)"
// @Param endDate query string false "Range end (YYYY-MM-DD)"
// @Security Bearer
// @Success 200 {object} dto.TransactionListResponse
// @Failure 401 {object} map[string]string
// @Router /transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	params := service.ListParams{
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}

	resp, err := h.txService.List(c.Context(), userID, params)
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		return serviceError(c, err, "Server error while fetching transactions")
	}

	return c.JSON(resp)
}

// Stats godoc
// @Summary Transaction statistics
// @Description Aggregates for the dashboard charts: expenses by category, income vs expense, daily expenses
// @Tags transactions
// @Produce json
// @Param startDate query string false "Range start (YYYY-MM-DD)"
// @Param endDate query string false "Range end (YYYY-MM-DD)"
// @Security Bearer
// @Success 200 {object} dto.TransactionStatsResponse
// @Failure 401 {object} map[string]string
// @Router /transactions/stats [get]
func (h *TransactionHandler) Stats(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	resp, err := h.txService.Stats(c.Context(), userID, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		return serviceError(c, err, "Server error while computing statistics")
	}

	return c.JSON(resp)
}

// Update godoc
// @Summary Update a transaction
// @Description Overwrite the supplied fields of an owned transaction; omitted fields keep their value
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.UpdateTransactionRequest true "Fields to update"
// @Security Bearer
// @Success 200 {object} dto.TransactionResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transactions/{id} [put]
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid transaction ID",
		})
	}

	var req dto.UpdateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.txService.Update(c.Context(), userID, id, &req)
	if err != nil {
		return serviceError(c, err, "Failed to update transaction")
	}

	return c.JSON(resp)
}

// Delete godoc
// @Summary Delete a transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid transaction ID",
		})
	}

	if err := h.txService.Delete(c.Context(), userID, id); err != nil {
		return serviceError(c, err, "Failed to delete transaction")
	}

	return c.JSON(fiber.Map{"message": "Transaction deleted successfully"})
}
