package indexdb

import (
	"context"
	"database/sql"
	"strings"
)

type ReportRow struct {
	Turn          int
	Agent         string
	OrderID       string
	OrderKind     string
	Status        string
	Message       string
	RegionsMoved  int
	InterruptKind string
}

type ReportFilter struct {
	Agent  string
	Status string
	From   int
	// 0 means no upper bound.
	To int
}

// QueryReports returns indexed reports in turn order.
func (s *SQLiteIndex) QueryReports(ctx context.Context, f ReportFilter) ([]ReportRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, f.Agent)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.From > 0 {
		where = append(where, "turn >= ?")
		args = append(args, f.From)
	}
	if f.To > 0 {
		where = append(where, "turn <= ?")
		args = append(args, f.To)
	}
	q := `SELECT turn,agent,order_id,order_kind,status,message,regions_moved,COALESCE(interrupt_kind,'') FROM reports`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY turn, seq"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(&r.Turn, &r.Agent, &r.OrderID, &r.OrderKind, &r.Status, &r.Message, &r.RegionsMoved, &r.InterruptKind); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OpenInterrupts counts interrupts raised for agent that no accepted RESPOND
// or CANCEL decision has answered since.
func (s *SQLiteIndex) OpenInterrupts(ctx context.Context, agent string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM interrupts i
		WHERE i.agent = ?
		AND NOT EXISTS (
			SELECT 1 FROM decisions d
			WHERE d.agent = i.agent AND d.accepted = 1
			AND d.command IN ('RESPOND','CANCEL','ISSUE')
			AND d.turn >= i.turn
		)`, agent).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
