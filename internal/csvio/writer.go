// internal/csvio/writer.go

package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"payments/internal/ledger"
)

var outputHeader = []string{"client", "available", "held", "total", "locked"}

// Writer 輸出帳戶快照表。
type Writer struct {
	w *csv.Writer
}

// NewWriter 建立輸出器。
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// WriteAccounts 輸出恰好一列表頭與每個帳戶一列；沒有帳戶時仍輸出表頭。
func (w *Writer) WriteAccounts(accounts []ledger.AccountSnapshot) error {
	if err := w.w.Write(outputHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(outputHeader))
	for _, a := range accounts {
		row[0] = strconv.FormatUint(uint64(a.Client), 10)
		row[1] = a.Available.String()
		row[2] = a.Held.String()
		row[3] = a.Total.String()
		row[4] = strconv.FormatBool(a.Locked)
		if err := w.w.Write(row); err != nil {
			return fmt.Errorf("write client %d: %w", a.Client, err)
		}
	}
	w.w.Flush()
	return w.w.Error()
}
