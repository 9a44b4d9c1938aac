package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(r rowScanner) (*Workflow, error) {
	wf := &Workflow{}
	var (
		description sql.NullString
		definition  []byte
		lastExec    sql.NullTime
	)
	if err := r.Scan(&wf.ID, &wf.UserID, &wf.Name, &description, &definition, &wf.IsActive,
		&wf.TotalRuns, &wf.SuccessfulRuns, &wf.FailedRuns, &lastExec, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
		return nil, err
	}
	wf.Description = description.String
	if err := json.Unmarshal(definition, &wf.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	if lastExec.Valid {
		wf.LastExecutedAt = &lastExec.Time
	}
	return wf, nil
}

func scanExecution(r rowScanner) (*Execution, error) {
	ex := &Execution{}
	var (
		status, mode, source              string
		retryOf, errMsg, errStack, failed sql.NullString
		input, output, trace              []byte
		completedAt                       sql.NullTime
		duration                          sql.NullInt64
	)
	if err := r.Scan(&ex.ID, &ex.WorkflowID, &ex.UserID, &status, &mode, &source, &retryOf,
		&input, &output, &trace, &ex.TotalSteps, &errMsg, &errStack, &failed,
		&ex.StartedAt, &completedAt, &duration); err != nil {
		return nil, err
	}
	ex.Status = schema.ExecutionStatus(status)
	ex.Mode = schema.ExecutionMode(mode)
	ex.TriggerSource = schema.TriggerSource(source)
	ex.RetryOf = retryOf.String
	ex.ErrorMessage = errMsg.String
	ex.ErrorStack = errStack.String
	ex.FailedStep = failed.String

	var err error
	if ex.InputData, err = unmarshalMap(input); err != nil {
		return nil, fmt.Errorf("unmarshal input_data: %w", err)
	}
	if ex.OutputData, err = unmarshalMap(output); err != nil {
		return nil, fmt.Errorf("unmarshal output_data: %w", err)
	}
	if ex.StepsExecuted, err = unmarshalTrace(trace); err != nil {
		return nil, fmt.Errorf("unmarshal steps_executed: %w", err)
	}
	if completedAt.Valid {
		ex.CompletedAt = &completedAt.Time
	}
	if duration.Valid {
		d := duration.Int64
		ex.DurationMs = &d
	}
	return ex, nil
}

func scanIntegration(r rowScanner) (*Integration, error) {
	in := &Integration{}
	var (
		typ             string
		access, refresh sql.NullString
		config          []byte
	)
	if err := r.Scan(&in.ID, &in.UserID, &typ, &in.Provider, &access, &refresh, &config,
		&in.IsActive, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return nil, err
	}
	in.Type = schema.IntegrationType(typ)
	in.AccessToken = access.String
	in.RefreshToken = refresh.String
	var err error
	if in.Config, err = unmarshalMap(config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return in, nil
}
