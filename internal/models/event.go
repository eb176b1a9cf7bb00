package models

// Event - конверт, который получает каждый подписчик при рассылке.
type Event struct {
	EventType EventType `json:"evento"`
	Data      any       `json:"dados"`
	Timestamp string    `json:"timestamp"`
}

// SaleEvent - данные события venda_realizada.
type SaleEvent struct {
	UserID        string   `json:"user_id"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Phone         string   `json:"phone"`
	PlanTier      PlanTier `json:"plan"`
	Amount        string   `json:"amount"`
	Product       string   `json:"product"`
	TransactionID string   `json:"transaction_id"`
}

// AccountCreatedEvent - данные события criou_conta.
type AccountCreatedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}
