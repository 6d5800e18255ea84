package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestControlState_ReadsHaltedRow(t *testing.T) {
	l, mock := newMockLedger(t)

	rows := sqlmock.NewRows([]string{"halted", "halt_reason", "heartbeat_at"}).
		AddRow(1, "operator requested halt", "2026-01-01T00:00:00Z")
	mock.ExpectQuery("SELECT halted, halt_reason, heartbeat_at FROM control").WillReturnRows(rows)

	state, err := l.ControlState(context.Background())
	if err != nil {
		t.Fatalf("ControlState failed: %v", err)
	}
	if !state.Halted || state.Reason != "operator requested halt" {
		t.Errorf("unexpected control state: %+v", state)
	}
	if state.HeartbeatAt.IsZero() {
		t.Error("expected heartbeat to be parsed")
	}
}

func TestPollControl_ReturnsPlainShape(t *testing.T) {
	l, mock := newMockLedger(t)

	rows := sqlmock.NewRows([]string{"halted", "halt_reason", "heartbeat_at"}).
		AddRow(0, nil, nil)
	mock.ExpectQuery("SELECT halted, halt_reason, heartbeat_at FROM control").WillReturnRows(rows)

	halted, reason, err := l.PollControl(context.Background())
	if err != nil {
		t.Fatalf("PollControl failed: %v", err)
	}
	if halted || reason != "" {
		t.Errorf("expected a clear control row, got halted=%v reason=%q", halted, reason)
	}
}

func TestRequestHalt_WritesHaltedRow(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec("UPDATE control SET halted = 1").
		WithArgs("operator requested halt").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := l.RequestHalt(context.Background(), "operator requested halt"); err != nil {
		t.Fatalf("RequestHalt failed: %v", err)
	}
}

func TestRequestResume_ClearsHaltedRow(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec("UPDATE control SET halted = 0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := l.RequestResume(context.Background()); err != nil {
		t.Fatalf("RequestResume failed: %v", err)
	}
}

func TestHeartbeat_WritesTimestamp(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec("UPDATE control SET heartbeat_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := l.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
}

func TestControlState_HeartbeatStaleness(t *testing.T) {
	stale := time.Now().Add(-10 * time.Minute).UTC().Format(time.RFC3339)
	l, mock := newMockLedger(t)

	rows := sqlmock.NewRows([]string{"halted", "halt_reason", "heartbeat_at"}).
		AddRow(0, nil, stale)
	mock.ExpectQuery("SELECT halted, halt_reason, heartbeat_at FROM control").WillReturnRows(rows)

	state, err := l.ControlState(context.Background())
	if err != nil {
		t.Fatalf("ControlState failed: %v", err)
	}
	if time.Since(state.HeartbeatAt) < 9*time.Minute {
		t.Error("expected the parsed heartbeat to reflect the stale timestamp")
	}
}
