// Package polymarket is a reference implementation of
// internal/adapter.Adapter against the real Polymarket CLOB: EIP-712
// signed order submission, HMAC-authenticated REST, and a WebSocket
// market-data feed. internal/app selects it whenever a venue private
// key is configured, in paper mode too (paper mode simulates fills in
// the execution engine but still reads this client's live book feed).
package polymarket

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/biserd/completeset-arb/internal/adapter"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const polygonChainID = 137

// Config configures a Client.
type Config struct {
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string // hex, with or without 0x prefix
	Address       string // EOA signer address; derived from PrivateKey if empty
	ProxyAddress  string // maker/funder address, if trading through a proxy wallet
	SignatureType int

	CLOBBaseURL  string // default https://clob.polymarket.com
	GammaBaseURL string // default https://gamma-api.polymarket.com
	WSURL        string // default wss://ws-subscriptions-clob.polymarket.com/ws/market
	FeeRate      decimal.Decimal

	Logger *zap.Logger

	// OnDisconnect, if set, fires once per detected WebSocket drop.
	// internal/app wires this to log a ws_disconnect risk event.
	OnDisconnect func()
}

// Client implements adapter.Adapter against Polymarket's CLOB and
// Gamma REST APIs plus its CLOB WebSocket feed.
type Client struct {
	cfg          Config
	rest         *resty.Client
	gamma        *resty.Client
	privateKey   *ecdsa.PrivateKey
	address      string
	proxyAddress string
	sigType      model.SignatureType
	orderBuilder builder.ExchangeOrderBuilder
	logger       *zap.Logger
	fee          decimal.Decimal

	feed *feed

	mu     sync.Mutex
	onFill adapter.FillFunc
}

// New builds a Client from Config. The private key is parsed eagerly
// so configuration errors surface at startup rather than on first
// order placement.
func New(cfg Config) (*Client, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("polymarket: parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("polymarket: derive address: unexpected public key type")
		}
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	clobBase := cfg.CLOBBaseURL
	if clobBase == "" {
		clobBase = "https://clob.polymarket.com"
	}
	gammaBase := cfg.GammaBaseURL
	if gammaBase == "" {
		gammaBase = "https://gamma-api.polymarket.com"
	}
	wsURL := cfg.WSURL
	if wsURL == "" {
		wsURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	}

	c := &Client{
		cfg:          cfg,
		rest:         resty.New().SetBaseURL(clobBase),
		gamma:        resty.New().SetBaseURL(gammaBase),
		privateKey:   privateKey,
		address:      address,
		proxyAddress: cfg.ProxyAddress,
		sigType:      model.SignatureType(cfg.SignatureType),
		orderBuilder: builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
		logger:       cfg.Logger,
		fee:          cfg.FeeRate,
	}
	c.feed = newFeed(wsURL, cfg.Logger, c.handleDisconnect)

	return c, nil
}

func (c *Client) VenueName() string { return "polymarket" }

func (c *Client) FeeRate() decimal.Decimal { return c.fee }

func (c *Client) makerAddress() string {
	if c.proxyAddress != "" {
		return c.proxyAddress
	}
	return c.address
}
