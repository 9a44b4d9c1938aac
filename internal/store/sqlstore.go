package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// sqlStore implements Store over database/sql. The dialect decides
// placeholders and boolean encoding.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

// --- Workflows ---

func (s *sqlStore) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	def, err := json.Marshal(wf.Definition)
	if err != nil {
		return storeErr("marshal definition", err)
	}
	now := time.Now().UTC()
	wf.CreatedAt = timeOrNow(wf.CreatedAt)
	if wf.UpdatedAt.IsZero() {
		wf.UpdatedAt = now
	}
	q := fmt.Sprintf(`INSERT INTO workflows (%s) VALUES (%s)`, workflowColumns, s.placeholders(12))
	_, err = s.db.ExecContext(ctx, q,
		wf.ID, wf.UserID, wf.Name, nullStr(wf.Description), string(def), s.d.boolean(wf.IsActive),
		wf.TotalRuns, wf.SuccessfulRuns, wf.FailedRuns, nullTime(wf.LastExecutedAt),
		wf.CreatedAt, wf.UpdatedAt,
	)
	return storeErr("create workflow", err)
}

func (s *sqlStore) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	q := fmt.Sprintf(`SELECT %s FROM workflows WHERE id = %s`, workflowColumns, s.d.ph(1))
	wf, err := scanWorkflow(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("workflow", id)
	}
	if err != nil {
		return nil, storeErr("get workflow", err)
	}
	return wf, nil
}

func (s *sqlStore) UpdateWorkflow(ctx context.Context, id string, update WorkflowUpdate) error {
	b, err := workflowSets(s.d, update)
	if err != nil {
		return storeErr("update workflow", err)
	}
	if len(b.sets) == 0 {
		_, err := s.GetWorkflow(ctx, id)
		return err
	}
	q := fmt.Sprintf(`UPDATE workflows SET %s WHERE id = %s`, joinSets(b.sets), b.next(id))
	res, err := s.db.ExecContext(ctx, q, b.args...)
	if err != nil {
		return storeErr("update workflow", err)
	}
	return storeErr("update workflow", checkRowsAffected(res, "workflow", id))
}

func (s *sqlStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*Workflow, error) {
	tail, args := workflowFilterSQL(s.d, filter)
	rows, err := s.db.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows`+tail, args...)
	if err != nil {
		return nil, storeErr("list workflows", err)
	}
	defer rows.Close()

	var out []*Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, storeErr("scan workflow", err)
		}
		out = append(out, wf)
	}
	return out, storeErr("list workflows", rows.Err())
}

func (s *sqlStore) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = `+s.d.ph(1), id)
	if err != nil {
		return storeErr("delete workflow", err)
	}
	return storeErr("delete workflow", checkRowsAffected(res, "workflow", id))
}

// --- Executions ---

func (s *sqlStore) CreateExecution(ctx context.Context, ex *Execution) error {
	input, err := marshalMap(ex.InputData)
	if err != nil {
		return storeErr("marshal input_data", err)
	}
	output, err := marshalNullableMap(ex.OutputData)
	if err != nil {
		return storeErr("marshal output_data", err)
	}
	trace, err := marshalTrace(ex.StepsExecuted)
	if err != nil {
		return storeErr("marshal steps_executed", err)
	}
	ex.StartedAt = timeOrNow(ex.StartedAt)
	q := fmt.Sprintf(`INSERT INTO workflow_executions (%s) VALUES (%s)`, executionColumns, s.placeholders(17))
	_, err = s.db.ExecContext(ctx, q,
		ex.ID, ex.WorkflowID, ex.UserID, string(ex.Status), string(ex.Mode), string(ex.TriggerSource),
		nullStr(ex.RetryOf), input, output, trace, ex.TotalSteps,
		nullStr(ex.ErrorMessage), nullStr(ex.ErrorStack), nullStr(ex.FailedStep), ex.StartedAt, nullTime(ex.CompletedAt), nullInt64(ex.DurationMs),
	)
	return storeErr("create execution", err)
}

func (s *sqlStore) GetExecution(ctx context.Context, id string) (*Execution, error) {
	q := fmt.Sprintf(`SELECT %s FROM workflow_executions WHERE id = %s`, executionColumns, s.d.ph(1))
	ex, err := scanExecution(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("execution", id)
	}
	if err != nil {
		return nil, storeErr("get execution", err)
	}
	return ex, nil
}

// execer is the subset of *sql.DB and *sql.Tx used for writes.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqlStore) updateExecution(ctx context.Context, db execer, id string, update ExecutionUpdate) error {
	b, err := executionSets(s.d, update)
	if err != nil {
		return err
	}
	if len(b.sets) == 0 {
		return nil
	}
	q := fmt.Sprintf(`UPDATE workflow_executions SET %s WHERE id = %s`, joinSets(b.sets), b.next(id))
	res, err := db.ExecContext(ctx, q, b.args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "execution", id)
}

func (s *sqlStore) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*Execution, error) {
	tail, args := executionFilterSQL(s.d, filter)
	rows, err := s.db.QueryContext(ctx, `SELECT `+executionColumns+` FROM workflow_executions`+tail, args...)
	if err != nil {
		return nil, storeErr("list executions", err)
	}
	defer rows.Close()

	var out []*Execution
	for rows.Next() {
		ex, err := scanExecution(rows)
		if err != nil {
			return nil, storeErr("scan execution", err)
		}
		out = append(out, ex)
	}
	return out, storeErr("list executions", rows.Err())
}

func (s *sqlStore) FinalizeExecution(ctx context.Context, id string, update ExecutionUpdate, workflowID string, succeeded bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return finalizeFailed(id, err)
	}
	if err := s.updateExecution(ctx, tx, id, update); err != nil {
		_ = tx.Rollback()
		return finalizeFailed(id, err)
	}
	at := time.Now().UTC()
	if update.CompletedAt != nil {
		at = *update.CompletedAt
	}
	res, err := tx.ExecContext(ctx, incrementCountersSQL(s.d, succeeded), at, workflowID)
	if err == nil {
		err = checkRowsAffected(res, "workflow", workflowID)
	}
	if err != nil {
		_ = tx.Rollback()
		return finalizeFailed(id, err)
	}
	if err := tx.Commit(); err != nil {
		return finalizeFailed(id, err)
	}
	return nil
}

// --- Integrations ---

func (s *sqlStore) CreateIntegration(ctx context.Context, in *Integration) error {
	config, err := marshalNullableMap(in.Config)
	if err != nil {
		return storeErr("marshal config", err)
	}
	now := time.Now().UTC()
	in.CreatedAt = timeOrNow(in.CreatedAt)
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = now
	}
	q := fmt.Sprintf(`INSERT INTO integrations (%s) VALUES (%s)`, integrationColumns, s.placeholders(10))
	_, err = s.db.ExecContext(ctx, q,
		in.ID, in.UserID, string(in.Type), in.Provider, nullStr(in.AccessToken), nullStr(in.RefreshToken),
		config, s.d.boolean(in.IsActive), in.CreatedAt, in.UpdatedAt,
	)
	return storeErr("create integration", err)
}

func (s *sqlStore) GetIntegration(ctx context.Context, id string) (*Integration, error) {
	q := fmt.Sprintf(`SELECT %s FROM integrations WHERE id = %s`, integrationColumns, s.d.ph(1))
	in, err := scanIntegration(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("integration", id)
	}
	if err != nil {
		return nil, storeErr("get integration", err)
	}
	return in, nil
}

func (s *sqlStore) FindActiveIntegration(ctx context.Context, userID string, typ string) (*Integration, error) {
	q := fmt.Sprintf(`SELECT %s FROM integrations WHERE user_id = %s AND type = %s AND is_active = %s
		ORDER BY created_at DESC LIMIT 1`, integrationColumns, s.d.ph(1), s.d.ph(2), s.d.ph(3))
	in, err := scanIntegration(s.db.QueryRowContext(ctx, q, userID, typ, s.d.boolean(true)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "no active %s integration for user %q", typ, userID)
	}
	if err != nil {
		return nil, storeErr("find integration", err)
	}
	return in, nil
}

func (s *sqlStore) ListIntegrations(ctx context.Context, userID string) ([]*Integration, error) {
	q := fmt.Sprintf(`SELECT %s FROM integrations WHERE user_id = %s ORDER BY created_at DESC`, integrationColumns, s.d.ph(1))
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list integrations", err)
	}
	defer rows.Close()

	var out []*Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, storeErr("scan integration", err)
		}
		out = append(out, in)
	}
	return out, storeErr("list integrations", rows.Err())
}

func (s *sqlStore) DeleteIntegration(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM integrations WHERE id = `+s.d.ph(1), id)
	if err != nil {
		return storeErr("delete integration", err)
	}
	return storeErr("delete integration", checkRowsAffected(res, "integration", id))
}

func (s *sqlStore) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.d.ph(i + 1)
	}
	return joinSets(ph)
}
