package dto

type UploadAcceptedResponse struct {
	Message  string `json:"message"`
	UploadID string `json:"uploadId"`
}

type UploadStatusResponse struct {
	Status       string               `json:"status"`
	Transaction  *TransactionResponse `json:"transaction"`
	ErrorMessage *string              `json:"errorMessage"`
}
