package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// AlertEvent is the payload of one below-threshold notification.
type AlertEvent struct {
	Symbol    string
	Quote     string
	Price     float64
	Threshold float64
	Message   string
	Time      time.Time
}

// NewAlertEvent builds the "time to buy" alert for a price under threshold.
func NewAlertEvent(symbol, quote string, price, threshold float64, at time.Time) AlertEvent {
	return AlertEvent{
		Symbol:    symbol,
		Quote:     quote,
		Price:     price,
		Threshold: threshold,
		Message: fmt.Sprintf("%s price %s %s is lower than threshold %s, time to buy! :tada:",
			symbol, formatPrice(price), quote, formatPrice(threshold)),
		Time: at.UTC(),
	}
}

// Notifier delivers an alert to a channel.
type Notifier interface {
	Notify(ctx context.Context, alert AlertEvent) error
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
