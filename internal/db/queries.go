package db

import (
	"fmt"
	"strings"

	"github.com/lucasnoah/remediate/internal/stage"
)

// StageEvent represents a row in the stage_events table.
type StageEvent struct {
	ID         int    `json:"id"`
	SessionID  string `json:"session_id"`
	Stage      string `json:"stage"`
	Transition string `json:"transition"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// RecordStageEvent inserts one controller transition. It satisfies stage.Recorder.
func (d *DB) RecordStageEvent(ev stage.Event) error {
	_, err := d.conn.Exec(
		`INSERT INTO stage_events (session_id, stage, transition, error_kind, message) VALUES (?, ?, ?, ?, ?)`,
		string(ev.Session), string(ev.Stage), ev.Transition, string(ev.Kind), ev.Message,
	)
	if err != nil {
		return fmt.Errorf("record stage event: %w", err)
	}
	return nil
}

// EventFilter narrows ListStageEvents. Zero values match everything.
type EventFilter struct {
	SessionID string
	Stage     string
	Limit     int
}

// ListStageEvents returns matching events, newest first.
func (d *DB) ListStageEvents(f EventFilter) ([]StageEvent, error) {
	var where []string
	var args []any
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, f.Stage)
	}

	q := `SELECT id, session_id, stage, transition, error_kind, message, timestamp FROM stage_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list stage events: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var e StageEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Stage, &e.Transition, &e.ErrorKind, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// StageCounts summarizes outcomes per stage across the whole journal.
type StageCounts struct {
	Stage     string `json:"stage"`
	Started   int    `json:"started"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Rejected  int    `json:"rejected"`
	Discarded int    `json:"discarded"`
}

// CountByStage aggregates transitions per stage in pipeline order.
func (d *DB) CountByStage() ([]StageCounts, error) {
	rows, err := d.conn.Query(`
		SELECT stage,
		       SUM(transition = 'started'),
		       SUM(transition = 'succeeded'),
		       SUM(transition = 'failed'),
		       SUM(transition = 'rejected'),
		       SUM(transition = 'discarded')
		FROM stage_events
		GROUP BY stage
		ORDER BY CASE stage WHEN 'upload' THEN 0 WHEN 'analyze' THEN 1 WHEN 'strategy' THEN 2 ELSE 3 END`)
	if err != nil {
		return nil, fmt.Errorf("count stage events: %w", err)
	}
	defer rows.Close()

	var out []StageCounts
	for rows.Next() {
		var c StageCounts
		if err := rows.Scan(&c.Stage, &c.Started, &c.Succeeded, &c.Failed, &c.Rejected, &c.Discarded); err != nil {
			return nil, fmt.Errorf("scan stage counts: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
