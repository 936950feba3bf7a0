// Package livefeed adapts an exchange websocket trade/ticker stream into
// MD_TICK events on the bus, as an alternative producer to the file
// replay engine. Grounded on internal/api/connector.go in the teacher
// repo, adapted to publish through bus.EventBus instead of a raw Go
// channel.
package livefeed

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mdbus/internal/bus"
)

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// InstMap maps an exchange instrument id (e.g. "BTC-USDT-SWAP") to the
// bus-facing symbol (e.g. "BTCUSDT").
type InstMap map[string]string

// wsEnvelope is the generic OKX V5-style push envelope.
type wsEnvelope struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data  json.RawMessage `json:"data"`
	Event string          `json:"event"`
}

type wsTrade struct {
	Timestamp string `json:"ts"`
	Price     string `json:"px"`
	Size      string `json:"sz"`
	Side      string `json:"side"`
}

type wsTicker struct {
	LastPrice string `json:"last"`
	Timestamp string `json:"ts"`
}

// Connector dials an exchange websocket endpoint and publishes Tick
// events onto a bus for every trade/ticker message received. On a read
// error it waits reconnectDelay, redials and resubscribes; Run returns if
// that redial or resubscription fails.
type Connector struct {
	busRef       *bus.EventBus
	wsURL        string
	instToSymbol InstMap
	logger       *zap.SugaredLogger

	reconnectDelay time.Duration
	dial           func(url string) (*websocket.Conn, error)
}

// New constructs a Connector for wsURL that maps symbols to OKX-style
// "<base>-<quote>-SWAP" instrument ids (e.g. "BTCUSDT" -> "BTC-USDT-SWAP").
func New(b *bus.EventBus, wsURL string, symbols []string, logger *zap.SugaredLogger) *Connector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	instToSymbol := make(InstMap, len(symbols))
	for _, symbol := range symbols {
		if len(symbol) < 4 {
			continue
		}
		instID := symbol[:3] + "-" + symbol[3:] + "-SWAP"
		instToSymbol[instID] = symbol
	}
	return &Connector{
		busRef:         b,
		wsURL:          wsURL,
		instToSymbol:   instToSymbol,
		logger:         logger,
		reconnectDelay: 5 * time.Second,
		dial: func(u string) (*websocket.Conn, error) {
			parsed, err := url.Parse(u)
			if err != nil {
				return nil, err
			}
			conn, _, err := websocket.DefaultDialer.Dial(parsed.String(), nil)
			return conn, err
		},
	}
}

// Run dials the websocket, subscribes to trades/tickers for every mapped
// instrument, and runs the read loop until stop is closed. Blocks the
// calling goroutine.
func (c *Connector) Run(stop <-chan struct{}) {
	c.logger.Infow("connecting to exchange websocket", "url", c.wsURL)

	conn, err := c.dial(c.wsURL)
	if err != nil {
		c.logger.Errorw("failed to connect to exchange websocket", "error", err)
		return
	}
	defer func() { conn.Close() }()

	var args []map[string]string
	for instID := range c.instToSymbol {
		args = append(args, map[string]string{"channel": "trades", "instId": instID})
		args = append(args, map[string]string{"channel": "tickers", "instId": instID})
	}
	sub := map[string]any{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(sub); err != nil {
		c.logger.Errorw("failed to send subscription", "error", err)
		return
	}
	c.logger.Infow("subscribed to trade and ticker streams")

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Errorw("error reading websocket message, reconnecting", "error", err)
			conn.Close()
			time.Sleep(c.reconnectDelay)
			next, err := c.dial(c.wsURL)
			if err != nil {
				c.logger.Errorw("failed to reconnect to exchange websocket", "error", err)
				return
			}
			conn = next
			if err := conn.WriteJSON(sub); err != nil {
				c.logger.Errorw("failed to send subscription", "error", err)
				return
			}
			continue
		}
		c.handleMessage(message)
	}
}

func (c *Connector) handleMessage(message []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return
	}
	if env.Event != "" || env.Arg.InstID == "" || len(env.Data) == 0 {
		return
	}
	symbol, ok := c.instToSymbol[env.Arg.InstID]
	if !ok {
		return
	}

	switch env.Arg.Channel {
	case "trades":
		c.handleTrades(symbol, env.Data)
	case "tickers":
		c.handleTickers(symbol, env.Data)
	}
}

func (c *Connector) handleTrades(symbol string, data json.RawMessage) {
	var trades []wsTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		c.logger.Errorw("trade data unmarshal error", "error", err)
		return
	}
	for _, t := range trades {
		price, err := parseFloat(t.Price)
		if err != nil {
			continue
		}
		size, err := parseFloat(t.Size)
		if err != nil {
			continue
		}
		c.publishTick(symbol, price, uint32(size))
	}
}

func (c *Connector) handleTickers(symbol string, data json.RawMessage) {
	var tickers []wsTicker
	if err := json.Unmarshal(data, &tickers); err != nil {
		c.logger.Errorw("ticker data unmarshal error", "error", err)
		return
	}
	if len(tickers) == 0 {
		return
	}
	price, err := parseFloat(tickers[0].LastPrice)
	if err != nil {
		return
	}
	c.publishTick(symbol, price, 0)
}

func (c *Connector) publishTick(symbol string, price float64, qty uint32) {
	ok := c.busRef.Publish(bus.Event{
		Header:  bus.Header{Topic: bus.TopicMDTick},
		Payload: bus.Tick{Symbol: symbol, Pq: price, Qty: qty},
	})
	if !ok {
		c.logger.Warnw("publish rejected, bus stopped", "symbol", symbol)
	}
}
