package models

// Wire shapes for the ACX-style REST API. Prices and volumes arrive as
// strings and are converted to decimals at the connector boundary.

// AcxBookLevel is one side entry of the venue order book response.
type AcxBookLevel struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

// AcxOrderBookResponse is the payload of GET /order_book.json.
type AcxOrderBookResponse struct {
	Bids []AcxBookLevel `json:"bids"`
	Asks []AcxBookLevel `json:"asks"`
}

// AcxTrade is one element of GET /trades.json and GET /trades/my.json.
type AcxTrade struct {
	ID        int64  `json:"id"`
	Market    string `json:"market,omitempty"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	CreatedAt string `json:"created_at"`
	Side      string `json:"side"`
	OrderID   int64  `json:"order_id,omitempty"`
}

// AcxOrder is the payload of GET /order.json and the acknowledgement of
// POST /orders.json. Message is only populated on business rejections,
// which the venue embeds in an otherwise successful response.
type AcxOrder struct {
	ID              int64      `json:"id"`
	Side            string     `json:"side"`
	State           string     `json:"state"`
	Price           string     `json:"price"`
	AvgPrice        string     `json:"avg_price"`
	Volume          string     `json:"volume"`
	RemainingVolume string     `json:"remaining_volume"`
	ExecutedVolume  string     `json:"executed_volume"`
	Trades          []AcxTrade `json:"trades,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// AcxAccount is one balance entry of GET /members/me.json.
type AcxAccount struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Locked   string `json:"locked"`
}

// AcxMember is the payload of GET /members/me.json.
type AcxMember struct {
	Accounts []AcxAccount `json:"accounts"`
}

// AcxMarket is one element of GET /markets, fetched once at startup to
// resolve the configured pair to a venue symbol.
type AcxMarket struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	BaseUnit       string `json:"base_unit"`
	QuoteUnit      string `json:"quote_unit"`
	PricePrecision int32  `json:"price_precision"`
}

// AcxError is the error envelope some venue responses carry inside a
// 200 body, stale-nonce rejections included.
type AcxError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AcxErrorEnvelope wraps the rejection shapes the venue uses inside a
// 200 body: a structured error object or a bare top-level message.
type AcxErrorEnvelope struct {
	Error   *AcxError `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}
