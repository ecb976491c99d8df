// internal/money/money.go

// Package money 定義固定精度（小數 4 位）的金額型別 Money。
// 底層使用 shopspring/decimal 表示十進位數值，避免浮點誤差；
// 可表示範圍限制為 int64 個「萬分之一單位」，所有加減法皆為檢查式運算，
// 超出範圍時回傳錯誤，不會溢位回繞或靜默截斷。
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Places 為金額固定的小數位數。
const Places = 4

var (
	// ErrInvalid 代表無法解析的金額文字（含 NaN、Inf、空字串）。
	ErrInvalid = errors.New("invalid amount")

	// ErrPrecision 代表輸入金額超過 4 位有效小數。
	ErrPrecision = errors.New("amount has more than 4 decimal places")

	// ErrOverflow 代表運算結果超出可表示範圍。
	ErrOverflow = errors.New("amount out of representable range")

	// ErrNegative 代表運算結果為負，但呼叫端要求非負。
	ErrNegative = errors.New("amount would become negative")
)

var (
	maxValue = decimal.New(math.MaxInt64, -Places)
	minValue = decimal.New(math.MinInt64, -Places)
)

// Money 為不可變的金額值；零值即為 0。
type Money struct {
	d decimal.Decimal
}

// Zero 為金額 0。
var Zero = Money{}

// Parse 解析十進位金額文字。
// 尾端的 0 不計入精度（"1.50000" 合法），超過 4 位有效小數回傳 ErrPrecision。
// 正負號不在此檢查，由呼叫端決定是否接受 0 或負數。
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty", ErrInvalid)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	m, err := fromDecimal(d)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", err, s)
	}
	return m, nil
}

// FromDecimal 將 decimal 轉為 Money，並檢查精度與範圍。
func FromDecimal(d decimal.Decimal) (Money, error) {
	m, err := fromDecimal(d)
	if err != nil {
		return Zero, fmt.Errorf("%w: %se%d", err, d.Coefficient(), d.Exponent())
	}
	return m, nil
}

// maxIntDigits 為可表示範圍內整數部分的最多位數（int64 / 10^4 約 9.2e14）。
const maxIntDigits = 15

// fromDecimal 回傳未包裝的 sentinel 錯誤。
// 先只看指數與係數位數，排除極端指數後才做會重新縮放 big.Int 的比較，
// 因此花費只與輸入長度成正比。
func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Zero, nil
	}
	exp := int64(d.Exponent())
	if exp > maxIntDigits {
		return Zero, ErrOverflow
	}
	if exp < -Places {
		// 係數須能被 10^k 整除，非零倍數至少有 k+1 位
		coef := d.Coefficient()
		digits := int64(len(coef.Abs(coef).String()))
		if digits <= -exp-Places {
			return Zero, ErrPrecision
		}
	}
	if !d.Equal(d.Truncate(Places)) {
		return Zero, ErrPrecision
	}
	if outOfRange(d) {
		return Zero, ErrOverflow
	}
	return Money{d: d.Truncate(Places)}, nil
}

// MustParse 與 Parse 相同，但失敗時 panic；僅供常數與測試使用。
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMinorUnits 由萬分之一單位的整數建立金額。
func FromMinorUnits(units int64) Money {
	return Money{d: decimal.New(units, -Places)}
}

// Add 回傳 m + o；超出範圍回傳 ErrOverflow。
func (m Money) Add(o Money) (Money, error) {
	sum := m.d.Add(o.d)
	if outOfRange(sum) {
		return Zero, fmt.Errorf("%w: %s + %s", ErrOverflow, m, o)
	}
	return Money{d: sum}, nil
}

// Sub 回傳 m - o；超出範圍回傳 ErrOverflow。
func (m Money) Sub(o Money) (Money, error) {
	diff := m.d.Sub(o.d)
	if outOfRange(diff) {
		return Zero, fmt.Errorf("%w: %s - %s", ErrOverflow, m, o)
	}
	return Money{d: diff}, nil
}

// SubNonNegative 回傳 m - o，結果為負時回傳 ErrNegative。
func (m Money) SubNonNegative(o Money) (Money, error) {
	diff, err := m.Sub(o)
	if err != nil {
		return Zero, err
	}
	if diff.IsNegative() {
		return Zero, fmt.Errorf("%w: %s - %s", ErrNegative, m, o)
	}
	return diff, nil
}

// Cmp 比較兩金額：m < o 回傳 -1，相等 0，m > o 回傳 1。
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal 判斷數值是否相等（與小數表示方式無關）。
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Decimal 回傳底層 decimal 值。
func (m Money) Decimal() decimal.Decimal { return m.d }

// MinorUnits 回傳萬分之一單位的整數值。
// 範圍檢查保證結果可放入 int64。
func (m Money) MinorUnits() int64 {
	return m.d.Shift(Places).Round(0).IntPart()
}

// Round 以「四捨五入、遠離零」的規則取到 4 位小數。
func (m Money) Round() Money {
	return Money{d: m.d.Round(Places)}
}

// String 以固定 4 位小數輸出，例如 "6.0000"。
func (m Money) String() string {
	return m.d.StringFixed(Places)
}

func outOfRange(d decimal.Decimal) bool {
	return d.GreaterThan(maxValue) || d.LessThan(minValue)
}
