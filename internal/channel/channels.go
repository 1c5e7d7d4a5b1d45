package channel

import (
	"orderflow/logger"
	"orderflow/models"
)

// Channels aggregates the canonical event hubs consumed by the trading
// engine: depth snapshots, the public trade tape, order status updates,
// position snapshots and transport connectivity.
type Channels struct {
	Books        *Hub[models.OrderBook]
	Trades       *Hub[models.Trade]
	Orders       *Hub[models.OrderStatusUpdate]
	Positions    *Hub[models.PositionSnapshot]
	Connectivity *Hub[models.ConnectivityStatus]
}

// NewChannels allocates every hub with the given subscriber buffer sizes.
func NewChannels(marketBuffer, orderBuffer, positionBuffer int) *Channels {
	c := &Channels{
		Books:        NewHub[models.OrderBook]("book", marketBuffer),
		Trades:       NewHub[models.Trade]("trade", marketBuffer),
		Orders:       NewHub[models.OrderStatusUpdate]("order", orderBuffer),
		Positions:    NewHub[models.PositionSnapshot]("position", positionBuffer),
		Connectivity: NewHub[models.ConnectivityStatus]("connectivity", orderBuffer),
	}

	logger.GetLogger().WithComponent("channels").WithFields(logger.Fields{
		"market_buffer":   marketBuffer,
		"order_buffer":    orderBuffer,
		"position_buffer": positionBuffer,
	}).Info("event hubs initialized")

	return c
}

// Close closes every hub.
func (c *Channels) Close() {
	c.Books.Close()
	c.Trades.Close()
	c.Orders.Close()
	c.Positions.Close()
	c.Connectivity.Close()
	logger.GetLogger().WithComponent("channels").Info("event hubs closed")
}
