package polymarket

import (
	"context"
	"time"

	"github.com/biserd/completeset-arb/internal/adapter"
	"github.com/biserd/completeset-arb/pkg/types"
	pmws "github.com/biserd/completeset-arb/pkg/websocket"
	gojson "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// wireLevel is one price/size pair as the CLOB WebSocket sends it:
// both fields are decimal strings, never JSON numbers.
type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// wireMessage is one element of the array the CLOB feed sends per
// frame. event_type is "book" for a full snapshot or "price_change"
// for an incremental update; this adapter only has any use for the
// best level on each side, so both are handled the same way.
type wireMessage struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Bids      []wireLevel `json:"bids,omitempty"`
	Asks      []wireLevel `json:"asks,omitempty"`
}

// feed owns the WebSocket transport and turns its raw frames into
// types.BookSnapshot values for the adapter's registered callback.
type feed struct {
	mgr    *pmws.Manager
	logger *zap.Logger
	onBook adapter.BookUpdateFunc
	cancel context.CancelFunc
}

func newFeed(url string, logger *zap.Logger, onDisconnect func()) *feed {
	mgr := pmws.New(pmws.Config{
		URL:                   url,
		Venue:                 "polymarket",
		DialTimeout:           10 * time.Second,
		PongTimeout:           15 * time.Second,
		PingInterval:          10 * time.Second,
		ReconnectInitialDelay: time.Second,
		ReconnectMaxDelay:     30 * time.Second,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     1000,
		Logger:                logger,
	})
	mgr.OnDisconnect = onDisconnect

	return &feed{mgr: mgr, logger: logger}
}

func (f *feed) setOnBook(fn adapter.BookUpdateFunc) {
	f.onBook = fn
}

func (f *feed) start(ctx context.Context) error {
	if err := f.mgr.Start(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	go f.pump(ctx)
	return nil
}

func (f *feed) stop() error {
	if f.cancel != nil {
		f.cancel()
	}
	return f.mgr.Close()
}

func (f *feed) connected() bool {
	return f.mgr.IsConnected()
}

func (f *feed) subscribe(ctx context.Context, tokenIDs []string) error {
	return f.mgr.Subscribe(ctx, tokenIDs)
}

// pump drains raw frames off the transport and dispatches parsed
// snapshots to the registered callback until ctx is cancelled.
func (f *feed) pump(ctx context.Context) {
	ch := f.mgr.MessageChan()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			f.handle(raw)
		}
	}
}

func (f *feed) handle(raw []byte) {
	var msgs []wireMessage
	if err := gojson.Unmarshal(raw, &msgs); err != nil {
		f.logger.Warn("polymarket-feed-unparseable-message", zap.Error(err), zap.Int("bytes", len(raw)))
		return
	}

	for _, m := range msgs {
		snapshot, ok := toSnapshot(m)
		if !ok {
			continue
		}
		if f.onBook != nil {
			f.onBook(snapshot)
		}
	}
}

func toSnapshot(m wireMessage) (types.BookSnapshot, bool) {
	if m.AssetID == "" {
		return types.BookSnapshot{}, false
	}
	bids, ok1 := toLevels(m.Bids)
	asks, ok2 := toLevels(m.Asks)
	if !ok1 || !ok2 {
		return types.BookSnapshot{}, false
	}
	return types.BookSnapshot{
		MarketID:  m.Market,
		TokenID:   m.AssetID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}, true
}

func toLevels(wire []wireLevel) ([]types.BookLevel, bool) {
	out := make([]types.BookLevel, 0, len(wire))
	for _, w := range wire {
		price, err := decimal.NewFromString(w.Price)
		if err != nil {
			return nil, false
		}
		size, err := decimal.NewFromString(w.Size)
		if err != nil {
			return nil, false
		}
		out = append(out, types.BookLevel{Price: price, Size: size})
	}
	return out, true
}
