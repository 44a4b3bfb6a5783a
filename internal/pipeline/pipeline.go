package pipeline

import (
	"context"
	"fmt"
	"time"

	"cryptoetl/internal/metrics"
	"cryptoetl/internal/record"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Fetcher returns the current prices of symbols in quotes.
type Fetcher interface {
	GetPrices(ctx context.Context, symbols, quotes []string) (record.PriceQuote, error)
}

// LakeWriter appends a record set to the lake table. Appends are not
// idempotent: writing the same set twice stores it twice.
type LakeWriter interface {
	Append(ctx context.Context, set record.PriceRecordSet) error
}

type Options struct {
	Fetcher      Fetcher
	Writer       LakeWriter
	Gate         *Gate // nil disables alerting
	Symbols      []string
	Quotes       []string
	FetchTimeout time.Duration
	WriteTimeout time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

type Pipeline struct {
	opts Options
}

// RunResult summarises one run.
type RunResult struct {
	RunID       string
	CapturedAt  time.Time
	RowsWritten int
	Gate        GateResult
	GateErr     error
}

func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pipeline{opts: opts}
}

// Run performs one Fetch -> Build -> (Gate || Write) pass. The gate runs on
// its own goroutine over the fetched quote and never delays or fails the
// write. Run returns once both branches have finished.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	started := time.Now()
	res := RunResult{RunID: uuid.NewString(), Gate: GateResult{Outcome: OutcomeSkipped}}
	log := p.opts.Logger.With(zap.String("run_id", res.RunID))

	quote, err := p.fetch(ctx)
	if err != nil {
		return p.finish(log, res, err, started)
	}
	log.Info("fetched prices", zap.Int("symbols", len(quote)))

	var (
		wg         conc.WaitGroup
		gateResult = GateResult{Outcome: OutcomeSkipped}
		gateErr    error
	)
	if p.opts.Gate != nil {
		wg.Go(func() {
			gateResult, gateErr = p.opts.Gate.Evaluate(ctx, quote, log)
		})
	}

	set, err := p.build(quote, log)
	if err == nil {
		res.CapturedAt = set.CapturedAt
		err = p.write(ctx, set, log)
		if err == nil {
			res.RowsWritten = set.Len()
		}
	}

	if recovered := wg.WaitAndRecover(); recovered != nil {
		gateResult = GateResult{Outcome: OutcomeFailed}
		gateErr = stageErr(ErrGate, "gate", recovered.AsError())
	}
	res.Gate = gateResult
	res.GateErr = gateErr
	p.opts.Metrics.ObserveAlert(string(gateResult.Outcome))
	if gateErr != nil {
		log.Error("alert branch failed", zap.Error(gateErr))
	}

	if err == nil && fatalToRun(gateErr) {
		err = gateErr
	}
	return p.finish(log, res, err, started)
}

func (p *Pipeline) fetch(ctx context.Context) (record.PriceQuote, error) {
	fetchCtx, cancel := withTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	quote, err := p.opts.Fetcher.GetPrices(fetchCtx, p.opts.Symbols, p.opts.Quotes)
	if err != nil {
		return nil, stageErr(ErrFetch, "fetch", err)
	}
	return quote, nil
}

func (p *Pipeline) build(quote record.PriceQuote, log *zap.Logger) (record.PriceRecordSet, error) {
	now := p.opts.Now().UTC()
	log.Info("adding capture time column", zap.Time("time", now))

	set, err := record.Build(quote, now)
	if err != nil {
		return record.PriceRecordSet{}, stageErr(ErrValidation, "build", err)
	}
	return set, nil
}

func (p *Pipeline) write(ctx context.Context, set record.PriceRecordSet, log *zap.Logger) error {
	writeCtx, cancel := withTimeout(ctx, p.opts.WriteTimeout)
	defer cancel()

	if err := p.opts.Writer.Append(writeCtx, set); err != nil {
		return stageErr(ErrWrite, "write", err)
	}
	p.opts.Metrics.AddRows(set.Len())
	log.Info("lake table updated", zap.Int("rows", set.Len()))
	return nil
}

func (p *Pipeline) finish(log *zap.Logger, res RunResult, err error, started time.Time) (RunResult, error) {
	elapsed := time.Since(started)
	if err != nil {
		p.opts.Metrics.ObserveRun("failed", elapsed)
		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return res, fmt.Errorf("run %s: %w", res.RunID, err)
	}
	p.opts.Metrics.ObserveRun("done", elapsed)
	log.Info("run done",
		zap.Int("rows", res.RowsWritten),
		zap.String("alert", string(res.Gate.Outcome)),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
