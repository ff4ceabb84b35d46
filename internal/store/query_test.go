package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestRunQuery_ToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		query        *RunQuery
		ph           placeholder
		wantDataHas  []string
		wantDataNot  []string
		wantCountSQL string
		wantArgs     []any
	}{
		{
			name:         "nil query uses defaults",
			query:        nil,
			ph:           dollarPlaceholder,
			wantDataHas:  []string{"FROM runs", "ORDER BY run_at DESC, id DESC", "LIMIT 50", "OFFSET 0"},
			wantDataNot:  []string{"WHERE"},
			wantCountSQL: "SELECT COUNT(*) FROM runs",
		},
		{
			name:         "mode filter postgres",
			query:        &RunQuery{Mode: ptr(domain.RunModeTest)},
			ph:           dollarPlaceholder,
			wantDataHas:  []string{"WHERE mode = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM runs WHERE mode = $1",
			wantArgs:     []any{"test"},
		},
		{
			name:         "mode filter sqlite",
			query:        &RunQuery{Mode: ptr(domain.RunModeFull)},
			ph:           questionPlaceholder,
			wantDataHas:  []string{"WHERE mode = ?"},
			wantCountSQL: "SELECT COUNT(*) FROM runs WHERE mode = ?",
			wantArgs:     []any{"full"},
		},
		{
			name:        "limit clamped",
			query:       &RunQuery{Limit: 10_000, Offset: -5},
			ph:          dollarPlaceholder,
			wantDataHas: []string{"LIMIT 500", "OFFSET 0"},
		},
		{
			name:        "custom limit and offset",
			query:       &RunQuery{Limit: 5, Offset: 10},
			ph:          dollarPlaceholder,
			wantDataHas: []string{"LIMIT 5", "OFFSET 10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dataSQL, countSQL, args := tt.query.ToSQL(tt.ph)
			for _, s := range tt.wantDataHas {
				assert.Contains(t, dataSQL, s)
			}
			for _, s := range tt.wantDataNot {
				assert.NotContains(t, dataSQL, s)
			}
			if tt.wantCountSQL != "" {
				assert.Equal(t, tt.wantCountSQL, countSQL)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSuccessRate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, SuccessRate(0, 0))
	assert.Equal(t, 33, SuccessRate(3, 1))
	assert.Equal(t, 67, SuccessRate(3, 2))
	assert.Equal(t, 100, SuccessRate(2, 2))
}
