// Package money переводит суммы платёжного провайдера (минорные единицы) в денежные значения.
package money

import "github.com/shopspring/decimal"

// FromMinorUnits переводит сумму в минорных единицах (центавос) в денежное значение с двумя знаками.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// ToMinorUnits переводит денежное значение обратно в минорные единицы, отбрасывая дробный остаток.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
