package handlers

import (
	"path/filepath"
	"strings"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/dto"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var allowedReceiptExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

var allowedReceiptMimes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

type UploadHandler struct {
	ingestService *service.IngestService
	logger        *zap.Logger
}

func NewUploadHandler(ingestService *service.IngestService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// Upload godoc
// @Summary Upload a receipt
// @Description Accept a receipt image or PDF and start AI analysis in the background
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param receipt formData file true "Receipt file (jpg, png or pdf)"
// @Security Bearer
// @Success 202 {object} dto.UploadAcceptedResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Please upload a file",
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	declaredMime := file.Header.Get("Content-Type")
	if !allowedReceiptExts[ext] || !allowedReceiptMimes[declaredMime] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "You can only upload images (jpg, png) or PDF files",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Failed to open file",
		})
	}
	defer src.Close()

	upload, err := h.ingestService.SubmitReceipt(c.Context(), userID, src, file.Filename, declaredMime)
	if err != nil {
		h.logger.Error("Failed to accept upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server error during file upload",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.UploadAcceptedResponse{
		Message:  "File uploaded. AI analysis has started.",
		UploadID: upload.ID.String(),
	})
}

// Status godoc
// @Summary Poll upload status
// @Description Current ingestion status plus the linked transaction or error message once terminal
// @Tags uploads
// @Produce json
// @Param id path string true "Upload ID"
// @Security Bearer
// @Success 200 {object} dto.UploadStatusResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /uploads/{id}/status [get]
func (h *UploadHandler) Status(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload ID",
		})
	}

	resp, err := h.ingestService.Status(c.Context(), userID, id)
	if err != nil {
		return serviceError(c, err, "Server error")
	}

	return c.JSON(resp)
}
