package wallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid_config",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: false,
		},
		{
			name:    "nil_config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "nil_logger",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       nil,
			},
			wantErr: true,
		},
		{
			name: "empty_rpc_endpoint",
			cfg: &Config{
				RPCEndpoint:  "",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "zero_poll_interval",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: 0,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "negative_poll_interval",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: -1 * time.Second,
				Logger:       logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tracker == nil {
				t.Error("New() returned nil tracker")
			}
			if !tt.wantErr {
				if tracker.client == nil {
					t.Error("New() client is nil")
				}
				if tracker.address != tt.cfg.Address {
					t.Errorf("New() address = %v, want %v", tracker.address, tt.cfg.Address)
				}
				if tracker.pollInterval != tt.cfg.PollInterval {
					t.Errorf("New() pollInterval = %v, want %v", tracker.pollInterval, tt.cfg.PollInterval)
				}
			}
		})
	}
}

func TestTracker_USDCBalance_ZeroUntilPolled(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      address,
		PollInterval: 1 * time.Minute,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if !tracker.USDCBalance().IsZero() {
		t.Errorf("USDCBalance() = %v before any poll, want zero", tracker.USDCBalance())
	}
}

func TestTracker_Run_ContextCancellation(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      address,
		PollInterval: 100 * time.Millisecond,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	err = tracker.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestTracker_Run_ImmediateCancellation(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      address,
		PollInterval: 1 * time.Minute,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not exit after context cancellation")
	}
}

func TestTracker_updateMetrics(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      address,
		PollInterval: 1 * time.Minute,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	tests := []struct {
		name     string
		balances *Balances
		wantUSDC float64
	}{
		{
			name: "typical_balances",
			balances: &Balances{
				MATIC:         big.NewInt(5e18),
				USDC:          big.NewInt(100e6),
				USDCAllowance: big.NewInt(1000e6),
			},
			wantUSDC: 100.0,
		},
		{
			name: "zero_balances",
			balances: &Balances{
				MATIC:         big.NewInt(0),
				USDC:          big.NewInt(0),
				USDCAllowance: big.NewInt(0),
			},
			wantUSDC: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker.updateMetrics(tt.balances)

			got, _ := tracker.USDCBalance().Float64()
			if got != tt.wantUSDC {
				t.Errorf("USDCBalance() = %v, want %v", got, tt.wantUSDC)
			}
		})
	}
}
