package domain

import (
	"strconv"
	"time"
)

const (
	txnDateLayout = "20060102150405"
	dateLayout    = "20060102"

	// MaxReportDays is the widest begin_date..end_date span a report may cover.
	MaxReportDays = 31
)

// IsValidTxnDate reports whether v is a 14 digit YYYYMMDDHHmmss value naming a real moment.
func IsValidTxnDate(v int64) bool {
	s := strconv.FormatInt(v, 10)
	if len(s) != len(txnDateLayout) {
		return false
	}
	_, err := time.Parse(txnDateLayout, s)
	return err == nil
}

// TxnDateFrom formats t as a YYYYMMDDHHmmss number.
func TxnDateFrom(t time.Time) int64 {
	v, _ := strconv.ParseInt(t.Format(txnDateLayout), 10, 64)
	return v
}

// NormalizeTxnDate returns txnDate if it is valid, otherwise the current time.
func NormalizeTxnDate(txnDate *int64, now func() time.Time) *int64 {
	if txnDate != nil && IsValidTxnDate(*txnDate) {
		v := *txnDate
		return &v
	}
	v := TxnDateFrom(now())
	return &v
}

// ParseDate parses a YYYYMMDD number.
func ParseDate(v int) (time.Time, bool) {
	s := strconv.Itoa(v)
	if len(s) != len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween counts whole days from begin to end. Both must be valid YYYYMMDD numbers.
func DaysBetween(begin, end int) (int, bool) {
	b, ok := ParseDate(begin)
	if !ok {
		return 0, false
	}
	e, ok := ParseDate(end)
	if !ok {
		return 0, false
	}
	return int(e.Sub(b).Hours() / 24), true
}
