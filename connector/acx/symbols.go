package acx

import (
	"context"
	"encoding/json"
	"strings"

	"orderflow/logger"
	"orderflow/models"
)

// Market is the venue-side identity of the configured instrument pair,
// resolved once at startup.
type Market struct {
	Symbol         string
	PricePrecision int32
}

// ResolveMarket fetches the venue market list and matches the configured
// base/quote pair against it. A missing match is fatal for the connector,
// so the caller is expected to abort on error.
func ResolveMarket(ctx context.Context, t *Transport, base, quote string) (Market, error) {
	raw, err := t.Get(ctx, "/markets", nil)
	if err != nil {
		return Market{}, err
	}

	var markets []models.AcxMarket
	if err := json.Unmarshal(raw, &markets); err != nil {
		return Market{}, &TransportError{URL: apiPrefix + "/markets", Body: string(raw), Err: err}
	}

	base = strings.ToLower(base)
	quote = strings.ToLower(quote)

	for _, m := range markets {
		if m.ID == base+quote || (m.BaseUnit == base && m.QuoteUnit == quote) {
			logger.GetLogger().WithComponent("acx_symbols").WithFields(logger.Fields{
				"symbol":          m.ID,
				"price_precision": m.PricePrecision,
			}).Info("resolved venue market")
			return Market{Symbol: m.ID, PricePrecision: m.PricePrecision}, nil
		}
	}

	return Market{}, &SymbolResolutionError{Base: base, Quote: quote}
}
