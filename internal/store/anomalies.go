package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

const defaultAnomalyLimit = 100

// InsertAnomaly persists a detected anomaly. A missing id gets a fresh
// UUID; the stored record is returned.
func (s *Store) InsertAnomaly(a domain.Anomaly) (domain.Anomaly, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if !a.Severity.Valid() {
		return domain.Anomaly{}, fmt.Errorf("insert anomaly: invalid severity %q", a.Severity)
	}
	if a.Timestamp == 0 {
		a.Timestamp = time.Now().UnixMilli()
	}
	metrics, err := json.Marshal(a.Metrics)
	if err != nil {
		return domain.Anomaly{}, fmt.Errorf("insert anomaly: encode metrics: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO anomalies (id, severity, source, symbol, timestamp, description, metrics, pre_screen_score, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Severity), a.Source, nullable(a.Symbol), a.Timestamp,
		a.Description, string(metrics), a.PreScreenScore, nullable(a.SessionID))
	if err != nil {
		return domain.Anomaly{}, fmt.Errorf("insert anomaly: %w", err)
	}
	return a, nil
}

// ListAnomalies returns anomalies matching the filter, newest first.
func (s *Store) ListAnomalies(f domain.AnomalyFilter) ([]domain.Anomaly, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, severity, source, symbol, timestamp, description, metrics, pre_screen_score, session_id
		FROM anomalies WHERE 1=1`)
	var args []any

	if len(f.Severities) > 0 {
		placeholders := strings.Repeat("?,", len(f.Severities))
		query.WriteString(" AND severity IN (" + placeholders[:len(placeholders)-1] + ")")
		for _, sev := range f.Severities {
			args = append(args, string(sev))
		}
	}
	if f.Source != "" {
		query.WriteString(" AND source = ?")
		args = append(args, f.Source)
	}
	if f.Symbol != "" {
		query.WriteString(" AND symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Since > 0 {
		query.WriteString(" AND timestamp >= ?")
		args = append(args, f.Since)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAnomalyLimit
	}
	query.WriteString(" ORDER BY timestamp DESC LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.Query(query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()

	var out []domain.Anomaly
	for rows.Next() {
		var (
			a       domain.Anomaly
			symbol  sql.NullString
			session sql.NullString
			metrics string
		)
		if err := rows.Scan(&a.ID, &a.Severity, &a.Source, &symbol, &a.Timestamp,
			&a.Description, &metrics, &a.PreScreenScore, &session); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Symbol = symbol.String
		a.SessionID = session.String
		if err := json.Unmarshal([]byte(metrics), &a.Metrics); err != nil {
			return nil, fmt.Errorf("decode anomaly metrics: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertFeedback records an analyst verdict for an anomaly.
func (s *Store) InsertFeedback(fb domain.AnomalyFeedback) (domain.AnomalyFeedback, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if !fb.Verdict.Valid() {
		return domain.AnomalyFeedback{}, fmt.Errorf("insert feedback: invalid verdict %q", fb.Verdict)
	}
	if fb.Timestamp == 0 {
		fb.Timestamp = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(`
		INSERT INTO feedback (id, anomaly_id, verdict, note, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		fb.ID, fb.AnomalyID, string(fb.Verdict), nullable(fb.Note), fb.Timestamp)
	if err != nil {
		return domain.AnomalyFeedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return fb, nil
}

// UnprocessedFeedback lists verdicts the agent has not yet learned
// from.
func (s *Store) UnprocessedFeedback() ([]domain.AnomalyFeedback, error) {
	rows, err := s.db.Query(`
		SELECT id, anomaly_id, verdict, note, timestamp
		FROM feedback WHERE processed = 0 ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []domain.AnomalyFeedback
	for rows.Next() {
		var (
			fb   domain.AnomalyFeedback
			note sql.NullString
		)
		if err := rows.Scan(&fb.ID, &fb.AnomalyID, &fb.Verdict, &note, &fb.Timestamp); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Note = note.String
		out = append(out, fb)
	}
	return out, rows.Err()
}

// MarkFeedbackProcessed flags feedback rows as consumed.
func (s *Store) MarkFeedbackProcessed(ids []string) error {
	for _, id := range ids {
		if _, err := s.db.Exec(`UPDATE feedback SET processed = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark feedback %s processed: %w", id, err)
		}
	}
	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
