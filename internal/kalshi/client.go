package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// KALSHI EXCHANGE CLIENT
// ═══════════════════════════════════════════════════════════════════════════════
//
// Authenticated REST client with bounded retries:
//   - bearer token minted from the RSA key, reused until near expiry
//   - transport failures retried 3x with 1s/2s/4s backoff
//   - HTTP 4xx/5xx fail immediately as BusinessError, never retried
//   - read endpoints degrade malformed shapes to empty defaults
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	maxRetries     = 3
	requestTimeout = 30 * time.Second
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *tokenSource
	dryRun     bool

	sleep func(time.Duration)
}

// NewClient creates an authenticated client from loaded credentials.
func NewClient(baseURL string, creds *Credentials, dryRun bool) (*Client, error) {
	key, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, err
	}

	mode := "LIVE"
	if dryRun {
		mode = "DRY RUN"
	}
	log.Info().
		Str("mode", mode).
		Str("api", baseURL).
		Msg("🔑 Kalshi client initialized")

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     newTokenSource(creds.APIKeyID, key),
		dryRun:     dryRun,
		sleep:      time.Sleep,
	}, nil
}

// backoffDelay returns the exponential backoff for a retry attempt: 1s, 2s, 4s.
func backoffDelay(attempt int) time.Duration {
	return time.Second << attempt
}

// Request executes an authenticated call. The returned body is always
// valid JSON; an empty response body is normalized to an empty object.
func (c *Client) Request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, &ValidationError{Field: "payload", Msg: err.Error()}
		}
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, &ValidationError{Field: "path", Msg: err.Error()}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport failure: connection refused, timeout. Retry with backoff.
			lastErr = err
			if attempt < maxRetries-1 {
				wait := backoffDelay(attempt)
				log.Warn().
					Err(err).
					Int("attempt", attempt+1).
					Int("max", maxRetries).
					Dur("backoff", wait).
					Str("path", path).
					Msg("Network error, retrying")
				c.sleep(wait)
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt < maxRetries-1 {
				c.sleep(backoffDelay(attempt))
			}
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, businessError(resp.StatusCode, body)
		}

		if len(bytes.TrimSpace(body)) == 0 {
			return []byte("{}"), nil
		}

		if !json.Valid(body) {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("body is not valid JSON")}
		}

		return body, nil
	}

	log.Error().
		Err(lastErr).
		Int("attempts", maxRetries).
		Str("path", path).
		Msg("Network error, giving up")
	return nil, &NetworkError{Attempts: maxRetries, Err: lastErr}
}

// businessError decodes the exchange's error body, falling back to the
// raw status and text when the body is not decodable.
func businessError(status int, body []byte) *BusinessError {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return &BusinessError{Status: status, Code: envelope.Error.Code, Detail: envelope.Error.Message}
		}
		if envelope.Message != "" {
			return &BusinessError{Status: status, Detail: envelope.Message}
		}
	}
	return &BusinessError{Status: status, Detail: string(body)}
}

// ─── Read endpoints ────────────────────────────────────────────────────────────
//
// Shape validation rule: a transport or exchange failure always propagates;
// a response that decodes but has the wrong shape degrades to the
// documented empty default.

// GetExchangeStatus checks whether the exchange is operational.
func (c *Client) GetExchangeStatus(ctx context.Context) (ExchangeStatus, error) {
	body, err := c.Request(ctx, http.MethodGet, "/exchange/status", nil)
	if err != nil {
		return ExchangeStatus{}, err
	}

	var status ExchangeStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return ExchangeStatus{}, &DecodeError{Path: "/exchange/status", Err: err}
	}
	return status, nil
}

// GetMarkets lists markets. A malformed response degrades to an empty list.
func (c *Client) GetMarkets(ctx context.Context, limit int, status string) ([]Market, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("status", status)

	body, err := c.Request(ctx, http.MethodGet, "/markets?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp MarketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Warn().Err(err).Msg("GetMarkets: unexpected response shape")
		return []Market{}, nil
	}
	if resp.Markets == nil {
		return []Market{}, nil
	}
	return resp.Markets, nil
}

// GetMarket fetches one market's detail. A malformed response degrades
// to the zero Market.
func (c *Client) GetMarket(ctx context.Context, marketID string) (Market, error) {
	body, err := c.Request(ctx, http.MethodGet, "/markets/"+url.PathEscape(marketID), nil)
	if err != nil {
		return Market{}, err
	}

	var m Market
	if err := json.Unmarshal(body, &m); err != nil {
		log.Warn().Err(err).Str("market", marketID).Msg("GetMarket: unexpected response shape")
		return Market{}, nil
	}
	return m, nil
}

// GetOrderbook fetches the resting order book for a market.
func (c *Client) GetOrderbook(ctx context.Context, marketID string) (Orderbook, error) {
	path := "/markets/" + url.PathEscape(marketID) + "/orderbook"
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Orderbook{}, err
	}

	var ob Orderbook
	if err := json.Unmarshal(body, &ob); err != nil {
		return Orderbook{}, &DecodeError{Path: path, Err: err}
	}
	return ob, nil
}

// GetPortfolio fetches the portfolio. A malformed response degrades to
// an empty portfolio.
func (c *Client) GetPortfolio(ctx context.Context) (Portfolio, error) {
	body, err := c.Request(ctx, http.MethodGet, "/portfolio", nil)
	if err != nil {
		return Portfolio{}, err
	}

	var p Portfolio
	if err := json.Unmarshal(body, &p); err != nil {
		log.Warn().Err(err).Msg("GetPortfolio: unexpected response shape")
		return Portfolio{}, nil
	}
	return p, nil
}

// GetBalance returns the account balance in cents.
func (c *Client) GetBalance(ctx context.Context) (Balance, error) {
	p, err := c.GetPortfolio(ctx)
	if err != nil {
		return Balance{}, err
	}
	return p.Balance, nil
}

// GetOpenOrders lists resting orders. A malformed response degrades to
// an empty list.
func (c *Client) GetOpenOrders(ctx context.Context) ([]OrderConfirmation, error) {
	body, err := c.Request(ctx, http.MethodGet, "/orders?status=open", nil)
	if err != nil {
		return nil, err
	}

	var resp OrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Warn().Err(err).Msg("GetOpenOrders: unexpected response shape")
		return []OrderConfirmation{}, nil
	}
	if resp.Orders == nil {
		return []OrderConfirmation{}, nil
	}
	return resp.Orders, nil
}

// GetPositions lists current positions. A malformed response degrades
// to an empty list.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	body, err := c.Request(ctx, http.MethodGet, "/portfolio/positions", nil)
	if err != nil {
		return nil, err
	}

	var resp PositionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Warn().Err(err).Msg("GetPositions: unexpected response shape")
		return []Position{}, nil
	}
	if resp.Positions == nil {
		return []Position{}, nil
	}
	return resp.Positions, nil
}

// ─── Order endpoints ───────────────────────────────────────────────────────────

// PlaceOrder validates inputs, then submits the order. Validation
// failures never reach the network.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (OrderConfirmation, error) {
	if order.Side != "yes" && order.Side != "no" {
		return OrderConfirmation{}, &ValidationError{Field: "side", Msg: fmt.Sprintf("%q must be yes or no", order.Side)}
	}
	if order.Price < 1 || order.Price > 99 {
		return OrderConfirmation{}, &ValidationError{Field: "price", Msg: fmt.Sprintf("%d must be between 1 and 99 cents", order.Price)}
	}
	if order.Count <= 0 {
		return OrderConfirmation{}, &ValidationError{Field: "count", Msg: fmt.Sprintf("%d must be positive", order.Count)}
	}
	if order.Type != "limit" && order.Type != "market" {
		return OrderConfirmation{}, &ValidationError{Field: "type", Msg: fmt.Sprintf("%q must be limit or market", order.Type)}
	}

	if c.dryRun {
		conf := OrderConfirmation{
			OrderID:  fmt.Sprintf("DRY_%d", time.Now().UnixNano()),
			MarketID: order.MarketID,
			Side:     order.Side,
			Price:    order.Price,
			Count:    order.Count,
			Status:   "resting",
		}
		log.Info().
			Str("order_id", conf.OrderID).
			Str("market", order.MarketID).
			Str("side", order.Side).
			Int64("price", order.Price).
			Int("count", order.Count).
			Msg("📝 DRY RUN: order would be placed")
		return conf, nil
	}

	body, err := c.Request(ctx, http.MethodPost, "/orders", order)
	if err != nil {
		return OrderConfirmation{}, err
	}

	var conf OrderConfirmation
	if err := json.Unmarshal(body, &conf); err != nil {
		return OrderConfirmation{}, &DecodeError{Path: "/orders", Err: err}
	}
	return conf, nil
}

// CancelOrder cancels a resting order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.dryRun {
		log.Info().Str("order_id", orderID).Msg("📝 DRY RUN: order would be cancelled")
		return nil
	}

	_, err := c.Request(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/cancel", nil)
	return err
}
