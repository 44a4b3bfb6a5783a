package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cryptoetl/internal/notify"
	"cryptoetl/internal/record"
	"cryptoetl/internal/threshold"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

type GateOutcome string

const (
	OutcomeSkipped   GateOutcome = "skipped"  // gate disabled
	OutcomeNoAlert   GateOutcome = "no_alert" // price >= threshold
	OutcomeAlertSent GateOutcome = "sent"
	OutcomeFailed    GateOutcome = "failed"
)

type GateResult struct {
	Outcome   GateOutcome
	Price     float64
	Threshold float64
	Alert     *notify.AlertEvent
}

// Gate compares the price of one designated asset with its threshold and
// notifies when the price is strictly below it.
type Gate struct {
	Source   threshold.Source
	Notifier notify.Notifier
	Asset    string
	Quote    string
	Timeout  time.Duration
	Now      func() time.Time
}

func (g *Gate) Evaluate(ctx context.Context, quote record.PriceQuote, logger *zap.Logger) (GateResult, error) {
	res := GateResult{Outcome: OutcomeFailed}

	price, ok := quote.Price(g.Asset, g.Quote)
	if !ok {
		return res, stageErr(ErrValidation, "gate",
			fmt.Errorf("%s/%s missing from fetched prices", g.Asset, g.Quote))
	}
	res.Price = price

	var entry threshold.Entry
	lookupCtx, cancel := withTimeout(ctx, g.Timeout)
	err := step(ErrThresholdLookup, func() (err error) {
		entry, err = g.Source.Lookup(lookupCtx, g.Asset)
		return err
	})
	cancel()
	if err != nil {
		return res, err
	}
	res.Threshold = entry.Threshold

	if !(price < entry.Threshold) {
		logger.Info("price not below threshold, no alert",
			zap.String("symbol", g.Asset),
			zap.Float64("price", price),
			zap.Float64("threshold", entry.Threshold))
		res.Outcome = OutcomeNoAlert
		return res, nil
	}

	logger.Info("price below threshold, sending alert",
		zap.String("symbol", g.Asset),
		zap.Float64("price", price),
		zap.Float64("threshold", entry.Threshold))

	alert := notify.NewAlertEvent(g.Asset, g.Quote, price, entry.Threshold, g.now())
	res.Alert = &alert

	notifyCtx, cancel := withTimeout(ctx, g.Timeout)
	err = step(ErrNotification, func() error {
		err := g.Notifier.Notify(notifyCtx, alert)
		if errors.Is(err, notify.ErrMissingCredential) {
			return stageErr(ErrConfig, "gate", err)
		}
		return err
	})
	cancel()
	if err != nil {
		return res, err
	}

	res.Outcome = OutcomeAlertSent
	return res, nil
}

// step runs f and tags its error, or a recovered panic, with kind. Errors
// that already carry a kind are returned as is.
func step(kind error, f func() error) error {
	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = f() })
	if r := pc.Recovered(); r != nil {
		return stageErr(kind, "gate", r.AsError())
	}
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return stageErr(kind, "gate", err)
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
