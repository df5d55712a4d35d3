// Package store is the persistence layer: raw SQL over the libsql driver.
// It owns the one genuinely concurrent unit of work in the system, the
// approve-and-allocate transaction in allocation.go.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"rifa-web-app/internal/logger"
)

type Store struct {
	db  *sql.DB
	log *logger.Logger
}

func New(db *sql.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// Timestamps are stored as RFC3339 UTC text so they survive any libsql
// column affinity.
const timeLayout = time.RFC3339

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func marshalInts(nums []int) string {
	if nums == nil {
		nums = []int{}
	}
	b, _ := json.Marshal(nums)
	return string(b)
}

func unmarshalInts(s string) []int {
	nums := []int{}
	if s == "" {
		return nums
	}
	_ = json.Unmarshal([]byte(s), &nums)
	return nums
}

func marshalStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
