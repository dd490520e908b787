package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

// CreateBacktest inserts a new run in the running state and returns it.
func (s *Store) CreateBacktest(config json.RawMessage) (domain.BacktestSummary, error) {
	bt := domain.BacktestSummary{
		ID:        uuid.NewString(),
		Status:    domain.BacktestRunning,
		Config:    config,
		CreatedAt: time.Now().UnixMilli(),
	}
	_, err := s.db.Exec(`
		INSERT INTO backtests (id, status, config, created_at)
		VALUES (?, ?, ?, ?)`,
		bt.ID, string(bt.Status), string(bt.Config), bt.CreatedAt)
	if err != nil {
		return domain.BacktestSummary{}, fmt.Errorf("create backtest: %w", err)
	}
	return bt, nil
}

// UpdateBacktestStatus moves a run to a terminal or intermediate
// status. Results and errMsg may be empty. Terminal statuses also set
// the completion time.
func (s *Store) UpdateBacktestStatus(id string, status domain.BacktestStatus, results json.RawMessage, errMsg string) error {
	var completedAt any
	switch status {
	case domain.BacktestComplete, domain.BacktestFailed, domain.BacktestCancelled:
		completedAt = time.Now().UnixMilli()
	}
	var resultsVal any
	if len(results) > 0 {
		resultsVal = string(results)
	}
	res, err := s.db.Exec(`
		UPDATE backtests SET status = ?, results = COALESCE(?, results),
			error = COALESCE(?, error), completed_at = COALESCE(?, completed_at)
		WHERE id = ?`,
		string(status), resultsVal, nullable(errMsg), completedAt, id)
	if err != nil {
		return fmt.Errorf("update backtest %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update backtest %s: not found", id)
	}
	return nil
}

// UpdateBacktestProgress records how many ticks a run has processed.
func (s *Store) UpdateBacktestProgress(id string, ticksProcessed int64) error {
	_, err := s.db.Exec(`UPDATE backtests SET ticks_processed = ? WHERE id = ?`, ticksProcessed, id)
	if err != nil {
		return fmt.Errorf("update backtest progress %s: %w", id, err)
	}
	return nil
}

// Backtest returns one run by id.
func (s *Store) Backtest(id string) (domain.BacktestSummary, error) {
	row := s.db.QueryRow(`
		SELECT id, status, config, results, error, ticks_processed, created_at, completed_at
		FROM backtests WHERE id = ?`, id)
	bt, err := scanBacktest(row)
	if err != nil {
		return domain.BacktestSummary{}, fmt.Errorf("get backtest %s: %w", id, err)
	}
	return bt, nil
}

// ListBacktests returns all runs, newest first.
func (s *Store) ListBacktests() ([]domain.BacktestSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, status, config, results, error, ticks_processed, created_at, completed_at
		FROM backtests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list backtests: %w", err)
	}
	defer rows.Close()

	var out []domain.BacktestSummary
	for rows.Next() {
		bt, err := scanBacktest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest: %w", err)
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBacktest(row rowScanner) (domain.BacktestSummary, error) {
	var (
		bt          domain.BacktestSummary
		config      string
		results     sql.NullString
		errMsg      sql.NullString
		completedAt sql.NullInt64
	)
	err := row.Scan(&bt.ID, &bt.Status, &config, &results, &errMsg,
		&bt.TicksProcessed, &bt.CreatedAt, &completedAt)
	if err != nil {
		return domain.BacktestSummary{}, err
	}
	bt.Config = json.RawMessage(config)
	if results.Valid {
		bt.Results = json.RawMessage(results.String)
	}
	bt.Error = errMsg.String
	bt.CompletedAt = completedAt.Int64
	return bt, nil
}

// InsertBacktestTrade records one simulated fill.
func (s *Store) InsertBacktestTrade(tr domain.BacktestTrade) (domain.BacktestTrade, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO backtest_trades (id, backtest_id, symbol, side, quantity, price, timestamp, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.BacktestID, tr.Symbol, tr.Side, tr.Quantity, tr.Price,
		tr.Timestamp, tr.PnL, nullable(tr.Reason))
	if err != nil {
		return domain.BacktestTrade{}, fmt.Errorf("insert trade: %w", err)
	}
	return tr, nil
}

// ListBacktestTrades returns a run's fills in time order.
func (s *Store) ListBacktestTrades(backtestID string) ([]domain.BacktestTrade, error) {
	rows, err := s.db.Query(`
		SELECT id, backtest_id, symbol, side, quantity, price, timestamp, pnl, reason
		FROM backtest_trades WHERE backtest_id = ? ORDER BY timestamp`, backtestID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []domain.BacktestTrade
	for rows.Next() {
		var (
			tr     domain.BacktestTrade
			reason sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.BacktestID, &tr.Symbol, &tr.Side, &tr.Quantity,
			&tr.Price, &tr.Timestamp, &tr.PnL, &reason); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		tr.Reason = reason.String
		out = append(out, tr)
	}
	return out, rows.Err()
}

// DeleteBacktest removes a run and its trades.
func (s *Store) DeleteBacktest(id string) error {
	if _, err := s.db.Exec(`DELETE FROM backtest_trades WHERE backtest_id = ?`, id); err != nil {
		return fmt.Errorf("delete trades for %s: %w", id, err)
	}
	if _, err := s.db.Exec(`DELETE FROM backtests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete backtest %s: %w", id, err)
	}
	return nil
}
