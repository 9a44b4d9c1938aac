package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect captures the SQL differences between libSQL and Postgres.
type dialect struct {
	// ph renders the n-th (1-based) bind parameter.
	ph func(n int) string
	// boolean converts a Go bool into the column's bind value.
	boolean func(b bool) any
}

var sqliteDialect = dialect{
	ph: func(int) string { return "?" },
	boolean: func(b bool) any {
		if b {
			return 1
		}
		return 0
	},
}

var postgresDialect = dialect{
	ph:      func(n int) string { return "$" + strconv.Itoa(n) },
	boolean: func(b bool) any { return b },
}

// setBuilder accumulates "col = <ph>" clauses and their args.
type setBuilder struct {
	d    dialect
	sets []string
	args []any
}

func (b *setBuilder) add(col string, val any) {
	b.args = append(b.args, val)
	b.sets = append(b.sets, fmt.Sprintf("%s = %s", col, b.d.ph(len(b.args))))
}

// next appends a trailing bind arg and returns its placeholder.
func (b *setBuilder) next(val any) string {
	b.args = append(b.args, val)
	return b.d.ph(len(b.args))
}

func workflowSets(d dialect, u WorkflowUpdate) (*setBuilder, error) {
	b := &setBuilder{d: d}
	if u.Name != nil {
		b.add("name", *u.Name)
	}
	if u.Description != nil {
		b.add("description", *u.Description)
	}
	if u.Definition != nil {
		def, err := json.Marshal(u.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal definition: %w", err)
		}
		b.add("definition", string(def))
	}
	if u.IsActive != nil {
		b.add("is_active", d.boolean(*u.IsActive))
	}
	if len(b.sets) > 0 {
		b.add("updated_at", time.Now().UTC())
	}
	return b, nil
}

func executionSets(d dialect, u ExecutionUpdate) (*setBuilder, error) {
	b := &setBuilder{d: d}
	if u.Status != nil {
		b.add("status", string(*u.Status))
	}
	if u.OutputData != nil {
		out, err := marshalMap(u.OutputData)
		if err != nil {
			return nil, fmt.Errorf("marshal output_data: %w", err)
		}
		b.add("output_data", out)
	}
	if u.StepsExecuted != nil {
		trace, err := marshalTrace(u.StepsExecuted)
		if err != nil {
			return nil, fmt.Errorf("marshal steps_executed: %w", err)
		}
		b.add("steps_executed", trace)
	}
	if u.TotalSteps != nil {
		b.add("total_steps", *u.TotalSteps)
	}
	if u.ErrorMessage != nil {
		b.add("error_message", *u.ErrorMessage)
	}
	if u.ErrorStack != nil {
		b.add("error_stack", *u.ErrorStack)
	}
	if u.FailedStep != nil {
		b.add("failed_step", *u.FailedStep)
	}
	if u.CompletedAt != nil {
		b.add("completed_at", *u.CompletedAt)
	}
	if u.DurationMs != nil {
		b.add("duration_ms", *u.DurationMs)
	}
	return b, nil
}

// counterColumn picks the outcome counter bumped alongside total_runs.
func counterColumn(succeeded bool) string {
	if succeeded {
		return "successful_runs"
	}
	return "failed_runs"
}

func incrementCountersSQL(d dialect, succeeded bool) string {
	col := counterColumn(succeeded)
	return fmt.Sprintf(
		"UPDATE workflows SET total_runs = total_runs + 1, %s = %s + 1, last_executed_at = %s WHERE id = %s",
		col, col, d.ph(1), d.ph(2))
}

// executionFilterSQL renders the WHERE/ORDER/LIMIT tail for ListExecutions.
func executionFilterSQL(d dialect, f ExecutionFilter) (string, []any) {
	var where []string
	var args []any
	if f.WorkflowID != "" {
		args = append(args, f.WorkflowID)
		where = append(where, "workflow_id = "+d.ph(len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, "user_id = "+d.ph(len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, "status = "+d.ph(len(args)))
	}
	var q string
	if len(where) > 0 {
		q = " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY started_at DESC"
	q += limitOffset(f.Limit, f.Offset)
	return q, args
}

func workflowFilterSQL(d dialect, f WorkflowFilter) (string, []any) {
	var where []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, "user_id = "+d.ph(len(args)))
	}
	if f.IsActive != nil {
		args = append(args, d.boolean(*f.IsActive))
		where = append(where, "is_active = "+d.ph(len(args)))
	}
	var q string
	if len(where) > 0 {
		q = " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	q += limitOffset(f.Limit, f.Offset)
	return q, args
}

func limitOffset(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	s := fmt.Sprintf(" LIMIT %d", limit)
	if offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", offset)
	}
	return s
}

const workflowColumns = "id, user_id, name, description, definition, is_active, total_runs, successful_runs, failed_runs, last_executed_at, created_at, updated_at"

const executionColumns = "id, workflow_id, user_id, status, execution_mode, trigger_source, retry_of, input_data, output_data, steps_executed, total_steps, error_message, error_stack, failed_step, started_at, completed_at, duration_ms"

const integrationColumns = "id, user_id, type, provider, access_token, refresh_token, config, is_active, created_at, updated_at"

func joinSets(parts []string) string { return strings.Join(parts, ", ") }
