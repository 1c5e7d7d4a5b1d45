package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type streamStat struct {
	events int64
	bytes  int64
}

var (
	errorsMarket    int64
	errorsOrders    int64
	errorsPositions int64
	warnsMarket     int64
	warnsOrders     int64
	warnsPositions  int64
	marketPolls     int64
	orderPolls      int64
	positionPolls   int64
	ordersSubmitted int64
	ordersCancelled int64
	streams         sync.Map // map[string]*streamStat
)

func recordWarn(component string) {
	switch {
	case strings.Contains(component, "market"):
		atomic.AddInt64(&warnsMarket, 1)
	case strings.Contains(component, "order"):
		atomic.AddInt64(&warnsOrders, 1)
	case strings.Contains(component, "position"):
		atomic.AddInt64(&warnsPositions, 1)
	}
}

func recordError(component string) {
	switch {
	case strings.Contains(component, "market"):
		atomic.AddInt64(&errorsMarket, 1)
	case strings.Contains(component, "order"):
		atomic.AddInt64(&errorsOrders, 1)
	case strings.Contains(component, "position"):
		atomic.AddInt64(&errorsPositions, 1)
	}
}

// IncrementMarketPoll records one completed market-data poll cycle.
func IncrementMarketPoll(size int) {
	atomic.AddInt64(&marketPolls, 1)
	recordStream("market_rest", size)
}

// IncrementOrderPoll records one completed reconciliation poll cycle.
func IncrementOrderPoll(size int) {
	atomic.AddInt64(&orderPolls, 1)
	recordStream("order_rest", size)
}

// IncrementPositionPoll records one completed balance poll cycle.
func IncrementPositionPoll(size int) {
	atomic.AddInt64(&positionPolls, 1)
	recordStream("position_rest", size)
}

// IncrementOrderSubmitted records one order handed to the venue.
func IncrementOrderSubmitted() {
	atomic.AddInt64(&ordersSubmitted, 1)
}

// IncrementOrderCancelled records one cancel handed to the venue.
func IncrementOrderCancelled() {
	atomic.AddInt64(&ordersCancelled, 1)
}

// RecordStreamEvent tracks throughput for an arbitrary named stream.
func RecordStreamEvent(name string, size int) {
	recordStream(name, size)
}

func recordStream(name string, size int) {
	v, _ := streams.LoadOrStore(name, &streamStat{})
	ss := v.(*streamStat)
	atomic.AddInt64(&ss.events, 1)
	atomic.AddInt64(&ss.bytes, int64(size))
}

// StartReport begins periodic logging of connector and stream statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	streamData := map[string]map[string]int64{}
	streams.Range(func(k, v any) bool {
		name := k.(string)
		ss := v.(*streamStat)
		streamData[name] = map[string]int64{
			"events": atomic.LoadInt64(&ss.events),
			"bytes":  atomic.LoadInt64(&ss.bytes),
		}
		return true
	})

	fields := Fields{
		"errors_market":    atomic.LoadInt64(&errorsMarket),
		"errors_orders":    atomic.LoadInt64(&errorsOrders),
		"errors_positions": atomic.LoadInt64(&errorsPositions),
		"warns_market":     atomic.LoadInt64(&warnsMarket),
		"warns_orders":     atomic.LoadInt64(&warnsOrders),
		"warns_positions":  atomic.LoadInt64(&warnsPositions),
		"market_polls":     atomic.LoadInt64(&marketPolls),
		"order_polls":      atomic.LoadInt64(&orderPolls),
		"position_polls":   atomic.LoadInt64(&positionPolls),
		"orders_submitted": atomic.LoadInt64(&ordersSubmitted),
		"orders_cancelled": atomic.LoadInt64(&ordersCancelled),
		"goroutines":       runtime.NumGoroutine(),
		"streams":          streamData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("MarketPolls"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["market_polls"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderPolls"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["order_polls"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("PositionPolls"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["position_polls"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrdersSubmitted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["orders_submitted"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrdersCancelled"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["orders_cancelled"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsMarket"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_market"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsOrders"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_orders"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsPositions"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_positions"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsMarket"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_market"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsOrders"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_orders"].(int64)))},
	)

	for name, stats := range streamData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("StreamEvents"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["events"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("StreamBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
