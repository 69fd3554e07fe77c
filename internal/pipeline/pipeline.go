package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/repeatwatch/internal/connector"
	"github.com/crimson-sun/repeatwatch/internal/engine"
	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/output"
)

// Processor classifies recognition events. *engine.Engine implements it.
type Processor interface {
	Submit(ctx context.Context, u model.Utterance) (model.Record, engine.Outcome)
}

// Pipeline connects a connector, a processor and an output.
type Pipeline struct {
	connector connector.Connector
	processor Processor
	output    output.Output
	logger    *slog.Logger

	accepted atomic.Int64
	dropped  atomic.Int64
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, proc Processor, out output.Output) *Pipeline {
	return &Pipeline{
		connector: conn,
		processor: proc,
		output:    out,
		logger:    logging.ForComponent("pipeline"),
	}
}

// Stream submits utterances as they arrive and writes accepted records.
// Blocks until the source closes or ctx is cancelled.
func (p *Pipeline) Stream(ctx context.Context, cfg connector.ConnectorConfig) error {
	ch, err := p.connector.Stream(ctx, cfg)
	if err != nil {
		return goerr.Wrap(err, "pipeline stream", goerr.V("provider", cfg.Provider))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-ch:
			if !ok {
				return nil
			}
			if err := p.handle(ctx, u); err != nil {
				return err
			}
		}
	}
}

// Replay runs every utterance returned by the connector's Query through the
// processor in order.
func (p *Pipeline) Replay(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) error {
	return p.ReplayAll(ctx, []connector.ConnectorConfig{cfg}, params)
}

// ReplayAll queries every source concurrently, then submits their utterances
// source by source in the order given. params applies to each source.
func (p *Pipeline) ReplayAll(ctx context.Context, cfgs []connector.ConnectorConfig, params connector.QueryParams) error {
	batches := make([][]model.Utterance, len(cfgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			us, err := p.connector.Query(gctx, cfg, params)
			if err != nil {
				return goerr.Wrap(err, "pipeline replay", goerr.V("provider", cfg.Provider), goerr.V("path", cfg.Path))
			}
			batches[i] = us
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, us := range batches {
		for _, u := range us {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.handle(ctx, u); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) handle(ctx context.Context, u model.Utterance) error {
	rec, outcome := p.processor.Submit(ctx, u)
	if outcome != engine.Accepted {
		p.dropped.Add(1)
		p.logger.Debug("utterance dropped", "outcome", outcome, "source", u.Source)
		return nil
	}
	p.accepted.Add(1)
	if err := p.output.Write(ctx, rec); err != nil {
		return goerr.Wrap(err, "pipeline output", goerr.V("record", rec.ID))
	}
	return nil
}

// Counts returns how many utterances were accepted and dropped so far.
func (p *Pipeline) Counts() (accepted, dropped int64) {
	return p.accepted.Load(), p.dropped.Load()
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	accepted, dropped := p.Counts()
	p.logger.Info("pipeline closed", "accepted", accepted, "dropped", dropped)
	return p.output.Close()
}
