package payment

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/finance-events/internal/lib/money"
)

// Customer - покупатель из данных вебхука.
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Product - купленный продукт. Price в минорных единицах.
type Product struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// Offer - оферта, по которой прошла покупка.
type Offer struct {
	Name string `json:"name"`
}

// Transaction - платёжная транзакция провайдера. Amount в минорных единицах.
type Transaction struct {
	ID     string           `json:"id"`
	Amount *decimal.Decimal `json:"amount"`
}

// Data - поле data входящего вебхука. Суммы принимаются и числом, и строкой.
type Data struct {
	Customer    Customer         `json:"customer"`
	Product     Product          `json:"product"`
	Offer       Offer            `json:"offer"`
	Transaction Transaction      `json:"transaction"`
	Amount      *decimal.Decimal `json:"amount"`
	ID          string           `json:"id"`
}

// NormalizeEmail приводит email к виду, в котором он сравнивается и хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail сообщает, что в адресе нет управляющих символов и пробелов и есть '@'.
// Адрес потом попадает в заголовок письма, поэтому CR и LF в нём недопустимы.
func ValidEmail(email string) bool {
	if !strings.Contains(email, "@") {
		return false
	}
	return strings.IndexFunc(email, func(r rune) bool {
		return unicode.IsControl(r) || unicode.IsSpace(r)
	}) < 0
}

// AmountMinorUnits возвращает сумму в минорных единицах: transaction.amount, затем amount, затем product.price.
func (d Data) AmountMinorUnits() int64 {
	for _, v := range []*decimal.Decimal{d.Transaction.Amount, d.Amount, d.Product.Price} {
		if v != nil {
			return v.IntPart()
		}
	}
	return 0
}

// AmountValue возвращает сумму в денежных единицах с двумя знаками.
func (d Data) AmountValue() decimal.Decimal {
	return money.FromMinorUnits(d.AmountMinorUnits())
}

// TransactionID возвращает внешний id транзакции: transaction.id, затем id.
func (d Data) TransactionID() string {
	if id := strings.TrimSpace(d.Transaction.ID); id != "" {
		return id
	}
	return strings.TrimSpace(d.ID)
}

// ProductLabel возвращает название, по которому классифицируется тариф: оферта, затем продукт.
func (d Data) ProductLabel() string {
	if name := strings.TrimSpace(d.Offer.Name); name != "" {
		return name
	}
	return strings.TrimSpace(d.Product.Name)
}
