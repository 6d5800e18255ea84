package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ControlState is the out-of-process kill-switch request a running
// instance's risk controller polls, paired with the heartbeat it
// stamps so a separately-invoked CLI command can tell whether an
// instance is actually running.
type ControlState struct {
	Halted      bool
	Reason      string
	HeartbeatAt time.Time
}

// ControlState reads the single control row.
func (l *Ledger) ControlState(ctx context.Context) (ControlState, error) {
	var halted int
	var reason, heartbeat sql.NullString
	err := l.db.QueryRowContext(ctx, `SELECT halted, halt_reason, heartbeat_at FROM control WHERE id = 1`).
		Scan(&halted, &reason, &heartbeat)
	if err != nil {
		return ControlState{}, fmt.Errorf("ledger: read control state: %w", err)
	}

	state := ControlState{Halted: halted != 0, Reason: reason.String}
	if heartbeat.Valid {
		if t, err := time.Parse(time.RFC3339, heartbeat.String); err == nil {
			state.HeartbeatAt = t
		}
	}
	return state, nil
}

// PollControl reports the current halt request in the plain shape the
// risk controller's ControlStore interface expects.
func (l *Ledger) PollControl(ctx context.Context) (bool, string, error) {
	state, err := l.ControlState(ctx)
	if err != nil {
		return false, "", err
	}
	return state.Halted, state.Reason, nil
}

// Heartbeat stamps the control row with the current time. The running
// instance's risk controller calls this on every check interval.
func (l *Ledger) Heartbeat(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `UPDATE control SET heartbeat_at = ? WHERE id = 1`,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("ledger: write heartbeat: %w", err)
	}
	return nil
}

// RequestHalt sets the halt request a running instance's risk
// controller polls and latches on.
func (l *Ledger) RequestHalt(ctx context.Context, reason string) error {
	if _, err := l.db.ExecContext(ctx, `UPDATE control SET halted = 1, halt_reason = ? WHERE id = 1`, reason); err != nil {
		return fmt.Errorf("ledger: request halt: %w", err)
	}
	return nil
}

// RequestResume clears the halt request.
func (l *Ledger) RequestResume(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `UPDATE control SET halted = 0, halt_reason = NULL WHERE id = 1`); err != nil {
		return fmt.Errorf("ledger: request resume: %w", err)
	}
	return nil
}
