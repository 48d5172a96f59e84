package kalshi

// Market is a binary market with its four quotes. Quote prices are
// integer cents in [0,100]; a missing quote decodes as 0 (unquoted).
type Market struct {
	MarketID  string `json:"market_id"`
	Title     string `json:"title"`
	CloseTime string `json:"close_time"`
	Volume    int64  `json:"volume"`
	YesBid    int64  `json:"yes_bid"`
	YesAsk    int64  `json:"yes_ask"`
	NoBid     int64  `json:"no_bid"`
	NoAsk     int64  `json:"no_ask"`
}

// MarketsResponse is the envelope of GET /markets.
type MarketsResponse struct {
	Markets []Market `json:"markets"`
}

// Orderbook is one side of GET /markets/{id}/orderbook.
type Orderbook struct {
	Yes [][2]int64 `json:"yes"` // [price, count] levels
	No  [][2]int64 `json:"no"`
}

// Balance is the account balance in cents.
type Balance struct {
	Cash int64 `json:"cash"`
}

// Portfolio is the envelope of GET /portfolio.
type Portfolio struct {
	Balance Balance `json:"balance"`
}

// Position is one entry of GET /portfolio/positions.
type Position struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	Count    int64  `json:"count"`
	AvgPrice int64  `json:"avg_price"`
}

// PositionsResponse is the envelope of GET /portfolio/positions.
type PositionsResponse struct {
	Positions []Position `json:"positions"`
}

// ExchangeStatus is the response of GET /exchange/status.
type ExchangeStatus struct {
	Status string `json:"status"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`  // "yes" or "no"
	Price    int64  `json:"price"` // cents, 1-99
	Count    int    `json:"count"`
	Type     string `json:"type"` // "limit" or "market"
}

// OrderConfirmation is the exchange's acknowledgement of an order.
type OrderConfirmation struct {
	OrderID  string `json:"order_id"`
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Count    int    `json:"count"`
	Status   string `json:"status"`
}

// OrdersResponse is the envelope of GET /orders.
type OrdersResponse struct {
	Orders []OrderConfirmation `json:"orders"`
}
