// internal/ledger/run.go

package ledger

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Source 為依序、惰性產生紀錄的輸入來源（不可重頭讀取）。
// 讀完時回傳 io.EOF；無法解析的單筆資料應回傳包裹 ErrValidation 的錯誤，
// 其他錯誤（例如 I/O 失敗）視為來源失效。
type Source interface {
	Next() (Record, error)
}

// Stats 為一次處理的統計。
type Stats struct {
	Applied  int `json:"applied"`
	Ignored  int `json:"ignored"`
	Rejected int `json:"rejected"`
	// Fatal 為 Rejected 中屬於溢位或不變式違反的筆數。
	Fatal int `json:"fatal"`
}

// Records 回傳處理過的紀錄總數。
func (s Stats) Records() int { return s.Applied + s.Ignored + s.Rejected }

func (s *Stats) add(outcome Outcome, err error) {
	switch outcome {
	case OutcomeApplied:
		s.Applied++
	case OutcomeIgnored:
		s.Ignored++
	default:
		s.Rejected++
		if IsFatal(err) {
			s.Fatal++
		}
	}
}

// Run 依序讀完 src 並套用到 e。
// 單筆紀錄的錯誤只會被計數與記錄，不會中止處理；只有來源本身失效時才回傳錯誤，
// 此時 Stats 反映失效前已處理的紀錄。
func Run(src Source, e *Engine) (Stats, error) {
	var stats Stats
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			if !errors.Is(err, ErrValidation) {
				return stats, fmt.Errorf("read record %d: %w", stats.Records()+1, err)
			}
			e.observer.Observe("unparsed", OutcomeRejected, err)
			e.logger.Debug("record skipped", zap.Int("index", stats.Records()+1), zap.Error(err))
			stats.add(OutcomeRejected, err)
			continue
		}
		outcome, err := e.Apply(rec)
		stats.add(outcome, err)
	}
}

// SliceSource 以切片提供紀錄，主要供測試與程式內呼叫使用。
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource 建立切片來源。
func NewSliceSource(records ...Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next 實作 Source。
func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}
