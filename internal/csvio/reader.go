// internal/csvio/reader.go

// Package csvio 為帳本的表格輸入／輸出轉接層。
// Reader 將 4 欄 CSV（type, client, tx, amount）逐列轉為 ledger.Record；
// Writer 將帳戶快照輸出為固定表頭的 CSV。
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"payments/internal/ledger"
	"payments/internal/money"
)

// ErrHeader 代表輸入缺少或不符預期的表頭列。
var ErrHeader = errors.New("unexpected csv header")

var inputHeader = []string{"type", "client", "tx", "amount"}

// Reader 惰性讀取交易紀錄，實作 ledger.Source。
type Reader struct {
	r      *csv.Reader
	header bool
	line   int
}

// NewReader 建立讀取器；表頭於第一次 Next 時檢查。
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{r: cr}
}

// Next 回傳下一筆紀錄；讀完回傳 io.EOF。
// 單列格式錯誤回傳包裹 ledger.ErrValidation 的錯誤，呼叫端可略過後繼續讀取。
func (r *Reader) Next() (ledger.Record, error) {
	if !r.header {
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}
	for {
		row, err := r.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.line++
				return nil, fmt.Errorf("%w: line %d: %v", ledger.ErrValidation, perr.Line, perr.Err)
			}
			return nil, err
		}
		r.line++
		if blank(row) {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line+1, err)
		}
		return rec, nil
	}
}

func (r *Reader) readHeader() error {
	row, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		// 空輸入視為零筆紀錄。
		r.header = true
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(row) < 3 {
		return fmt.Errorf("%w: %v", ErrHeader, row)
	}
	for i, col := range row {
		if i >= len(inputHeader) || !strings.EqualFold(strings.TrimSpace(col), inputHeader[i]) {
			return fmt.Errorf("%w: %v", ErrHeader, row)
		}
	}
	r.header = true
	return nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseRow 將單列欄位轉為紀錄。
// dispute / resolve / chargeback 的 amount 欄位即使有值也不使用。
func parseRow(row []string) (ledger.Record, error) {
	if len(row) < 3 || len(row) > 4 {
		return nil, fmt.Errorf("%w: want 3 or 4 fields, got %d", ledger.ErrValidation, len(row))
	}
	kind := strings.ToLower(strings.TrimSpace(row[0]))
	client, err := strconv.ParseUint(strings.TrimSpace(row[1]), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: client %q: %v", ledger.ErrValidation, row[1], err)
	}
	tx, err := strconv.ParseUint(strings.TrimSpace(row[2]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: tx %q: %v", ledger.ErrValidation, row[2], err)
	}
	cid, tid := ledger.ClientID(client), ledger.TxID(tx)

	switch kind {
	case "deposit", "withdrawal":
		if len(row) < 4 {
			return nil, fmt.Errorf("%w: %s without amount", ledger.ErrValidation, kind)
		}
		amount, err := money.Parse(row[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %s amount: %v", ledger.ErrValidation, kind, err)
		}
		if kind == "deposit" {
			return ledger.Deposit{Client: cid, Tx: tid, Amount: amount}, nil
		}
		return ledger.Withdrawal{Client: cid, Tx: tid, Amount: amount}, nil
	case "dispute":
		return ledger.Dispute{Client: cid, Tx: tid}, nil
	case "resolve":
		return ledger.Resolve{Client: cid, Tx: tid}, nil
	case "chargeback":
		return ledger.Chargeback{Client: cid, Tx: tid}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ledger.ErrValidation, row[0])
	}
}
