package dto

type CreateTransactionRequest struct {
	Type        string  `json:"type" validate:"required,oneof=income expense"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Date        string  `json:"date" validate:"required"`
	Description string  `json:"description"`
}

// UpdateTransactionRequest carries a partial update. Zero values mean
// "keep the current value": an amount of 0 or an empty string never
// overwrites what is stored.
type UpdateTransactionRequest struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

type TransactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"createdAt"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalPages   int                   `json:"totalPages"`
	CurrentPage  int                   `json:"currentPage"`
}

type CategoryTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type TypeTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

type TransactionStatsResponse struct {
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
	IncomeVsExpense    []TypeTotal     `json:"incomeVsExpense"`
	DailyExpenses      []DailyTotal    `json:"dailyExpenses"`
}
