package store

import (
	"fmt"
	"strings"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// RunQuery defines optional filters for run listings.
type RunQuery struct {
	Mode   *domain.RunMode
	Limit  int // default 50
	Offset int
}

const baseRunsSelect = `SELECT id, mode, total_found, processed, sent_count,
	duplicates, failed, avg_price, run_at, duration_ms, market_context
FROM runs`

const countRunsSelect = "SELECT COUNT(*) FROM runs"

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

// ToSQL builds the data and count queries for q using ph for bind
// parameters, newest runs first.
func (q *RunQuery) ToSQL(ph placeholder) (dataSQL, countSQL string, args []any) {
	if q == nil {
		q = &RunQuery{}
	}

	var conditions []string
	paramIdx := 1

	if q.Mode != nil {
		conditions = append(conditions, "mode = "+ph(paramIdx))
		args = append(args, string(*q.Mode))
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY run_at DESC, id DESC LIMIT %d OFFSET %d",
		baseRunsSelect, whereClause, clampLimit(q.Limit), max(q.Offset, 0),
	)
	countSQL = countRunsSelect + whereClause

	return dataSQL, countSQL, args
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}
