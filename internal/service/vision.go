package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/venkatvisarapu/personal-finance-assistant/pkg/config"

	"go.uber.org/zap"
)

// ReceiptData is the normalized result of analyzing one receipt.
type ReceiptData struct {
	Amount      float64
	Date        time.Time
	Description string
	Category    string
}

// ReceiptExtractor turns a receipt file into structured transaction data
// by calling an external AI vision service.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, content []byte, mimeType string) (*ReceiptData, error)
}

const extractionPrompt = `Analyze the following receipt image. Extract the information and respond ONLY with a valid JSON object.
Do not include any text, markdown, or the word "json" outside of the JSON structure.

The JSON object must have these exact keys:
- "merchant_name": The name of the store. If not found, use null.
- "transaction_date": The date in "YYYY-MM-DD" format. If not found, use null.
- "total_amount": The final total amount as a number. If not found, use null.
- "suggested_category": A likely category like "Groceries", "Dining", "Gas", "Shopping", or "Other".

Example response:
{
  "merchant_name": "SUNRISE ENTERPRISE",
  "transaction_date": "2025-01-10",
  "total_amount": 38026.00,
  "suggested_category": "Electronics"
}`

// GeminiClient calls the Gemini generateContent REST API with the file
// content inlined as base64.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     *zap.Logger
}

func NewGeminiClient(cfg *config.GeminiConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.Endpoint,
		logger:     logger,
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func (c *GeminiClient) ExtractReceipt(ctx context.Context, content []byte, mimeType string) (*ReceiptData, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: extractionPrompt},
				{InlineData: &geminiBlobPart{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(content),
				}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("Vision API returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
		)
		return nil, fmt.Errorf("vision API failed with status %d", resp.StatusCode)
	}

	var genResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	data, err := parseReceiptReply(text.String())
	if err != nil {
		return nil, err
	}

	c.logger.Info("Receipt analyzed",
		zap.Float64("amount", data.Amount),
		zap.String("category", data.Category),
	)

	return data, nil
}

// parseReceiptReply turns the model's free-text reply into ReceiptData.
// The reply is treated as untrusted: code fences are stripped, the JSON is
// parsed into a fixed shape, and a missing or non-positive total is an
// error. Absent merchant, date and category fall back to defaults.
func parseReceiptReply(reply string) (*ReceiptData, error) {
	cleaned := stripCodeFences(reply)

	var fields struct {
		MerchantName      *string     `json:"merchant_name"`
		TransactionDate   *string     `json:"transaction_date"`
		TotalAmount       json.Number `json:"total_amount"`
		SuggestedCategory *string     `json:"suggested_category"`
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("AI returned a response in an invalid format: %w", err)
	}

	amount, err := fields.TotalAmount.Float64()
	if err != nil || math.IsNaN(amount) || amount <= 0 {
		return nil, fmt.Errorf("AI could not determine a valid total amount from the receipt")
	}

	data := &ReceiptData{
		Amount:      amount,
		Date:        todayUTC(),
		Description: "Scanned Receipt",
		Category:    "Uncategorized",
	}

	if fields.TransactionDate != nil {
		if parsed, err := time.Parse("2006-01-02", *fields.TransactionDate); err == nil {
			data.Date = parsed.UTC()
		}
	}
	if fields.MerchantName != nil && *fields.MerchantName != "" {
		data.Description = *fields.MerchantName
	}
	if fields.SuggestedCategory != nil && *fields.SuggestedCategory != "" {
		data.Category = *fields.SuggestedCategory
	}

	return data, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
