// internal/ledger/account.go
//
// 本檔定義 ClientAccount 與 AccountBook。
// total 不另外儲存，一律由 available + held 推導，避免兩者不同步。

package ledger

import (
	"fmt"

	"payments/internal/money"
)

// ClientAccount 為單一客戶的帳戶狀態。
type ClientAccount struct {
	Client    ClientID
	Available money.Money
	Held      money.Money
	Locked    bool
}

// Total 回傳 available + held。
// Engine 在存款時已檢查兩者之和不溢位，正常狀態下不會回傳錯誤。
func (a ClientAccount) Total() (money.Money, error) {
	t, err := a.Available.Add(a.Held)
	if err != nil {
		return money.Zero, fmt.Errorf("%w: client %d total: %v", ErrOverflow, a.Client, err)
	}
	return t, nil
}

// AccountSnapshot 為輸出用的帳戶快照，金額皆已取到 4 位小數。
type AccountSnapshot struct {
	Client    ClientID
	Available money.Money
	Held      money.Money
	Total     money.Money
	Locked    bool
}

// AccountBook 為客戶 → 帳戶的對照表，並記住各客戶首次出現的順序。
type AccountBook struct {
	accts map[ClientID]*ClientAccount
	order []ClientID
}

// NewAccountBook 建立空白帳戶表。
func NewAccountBook() *AccountBook {
	return &AccountBook{accts: make(map[ClientID]*ClientAccount)}
}

// Get 回傳帳戶值拷貝；不存在時回傳 false。
func (b *AccountBook) Get(id ClientID) (ClientAccount, bool) {
	a, ok := b.accts[id]
	if !ok {
		return ClientAccount{}, false
	}
	return *a, true
}

// Len 回傳帳戶數。
func (b *AccountBook) Len() int { return len(b.order) }

// peek 回傳帳戶拷貝；不存在時回傳初始狀態（餘額 0、未凍結），但不建立帳戶。
func (b *AccountBook) peek(id ClientID) ClientAccount {
	if a, ok := b.accts[id]; ok {
		return *a
	}
	return ClientAccount{Client: id}
}

// touch 確保帳戶存在；首次出現時建立初始帳戶（餘額 0、未凍結）並記錄順序。
func (b *AccountBook) touch(id ClientID) {
	if _, ok := b.accts[id]; ok {
		return
	}
	b.accts[id] = &ClientAccount{Client: id}
	b.order = append(b.order, id)
}

// put 寫回帳戶；首次寫入時記錄順序。
func (b *AccountBook) put(a ClientAccount) {
	if cur, ok := b.accts[a.Client]; ok {
		*cur = a
		return
	}
	cp := a
	b.accts[a.Client] = &cp
	b.order = append(b.order, a.Client)
}

// Snapshot 依首次出現順序回傳所有帳戶快照。
func (b *AccountBook) Snapshot() ([]AccountSnapshot, error) {
	out := make([]AccountSnapshot, 0, len(b.order))
	for _, id := range b.order {
		a := b.accts[id]
		total, err := a.Total()
		if err != nil {
			return nil, err
		}
		out = append(out, AccountSnapshot{
			Client:    a.Client,
			Available: a.Available.Round(),
			Held:      a.Held.Round(),
			Total:     total.Round(),
			Locked:    a.Locked,
		})
	}
	return out, nil
}
