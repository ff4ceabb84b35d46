package store

// SQL query constants organized by entity.
// PostgreSQL uses $n parameters; SQLite uses ?.

// Run queries.
const (
	queryInsertRunPG = `
		INSERT INTO runs (
			id, mode, total_found, processed, sent_count,
			duplicates, failed, avg_price, run_at, duration_ms, market_context
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	queryInsertRunSQLite = `
		INSERT INTO runs (
			id, mode, total_found, processed, sent_count,
			duplicates, failed, avg_price, run_at, duration_ms, market_context
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	queryGetRunPG     = baseRunsSelect + " WHERE id = $1"
	queryGetRunSQLite = baseRunsSelect + " WHERE id = ?"

	querySummary = `
		SELECT
			COALESCE(SUM(total_found), 0),
			COALESCE(SUM(sent_count), 0),
			COUNT(*),
			COALESCE(AVG(CASE WHEN avg_price > 0 THEN avg_price END), 0),
			MAX(run_at)
		FROM runs`
)

// Activity log queries.
const (
	queryInsertLogPG = `
		INSERT INTO activity_log (logged_at, message, type) VALUES ($1, $2, $3)`

	queryTrimLogPG = `
		DELETE FROM activity_log WHERE id NOT IN (
			SELECT id FROM activity_log ORDER BY id DESC LIMIT $1
		)`

	queryListLogsPG = `
		SELECT logged_at, message, type FROM activity_log
		ORDER BY id DESC LIMIT $1`

	queryInsertLogSQLite = `
		INSERT INTO activity_log (logged_at, message, type) VALUES (?, ?, ?)`

	queryTrimLogSQLite = `
		DELETE FROM activity_log WHERE id NOT IN (
			SELECT id FROM activity_log ORDER BY id DESC LIMIT ?
		)`

	queryListLogsSQLite = `
		SELECT logged_at, message, type FROM activity_log
		ORDER BY id DESC LIMIT ?`
)
