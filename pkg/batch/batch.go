// Package batch decodes several ULog buffers concurrently. Every input gets
// its own decoder; a failure in one input does not stop the others.
package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"example.com/ulogkit/internal/common"
	"example.com/ulogkit/pkg/config"
	"example.com/ulogkit/pkg/ulog"
)

type Input struct {
	Name string
	Data []byte
}

type Outcome struct {
	Name     string
	Digest   string
	Result   *ulog.Result
	Err      error
	Duration time.Duration
}

type Options struct {
	// Decode is applied to every input. Its Observer, if any, is called from
	// several goroutines at once.
	Decode ulog.Options
	// Concurrency bounds the number of decodes in flight. Values below one
	// mean one.
	Concurrency int
	// Metrics receives per-record counters. A fresh value is used when nil.
	Metrics *common.Metrics
	// Progress, when set, gets a periodically rewritten status line.
	Progress         io.Writer
	ProgressInterval time.Duration
	// Registerer, when set, gets a collector exporting the run's counters.
	// The collector stays registered after Run returns.
	Registerer prometheus.Registerer
}

// RunConfig is Run driven by a loaded configuration: it installs the file
// log described by cfg for the duration of the run and takes the decoder
// settings and concurrency from cfg. Other fields of opts are kept, including
// any Observer in opts.Decode.
func RunConfig(ctx context.Context, inputs []Input, cfg config.Config, opts Options) ([]Outcome, error) {
	closer, err := common.SetupLogging(cfg.LogConfig())
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	observer := opts.Decode.Observer
	opts.Decode = cfg.DecodeOptions()
	opts.Decode.Observer = observer
	opts.Concurrency = cfg.Concurrency
	return Run(ctx, inputs, opts)
}

// Run decodes every input and returns one outcome per input in input order.
// The returned error is non-nil only when ctx ends before all inputs were
// handled; outcomes for finished inputs are still returned.
func Run(ctx context.Context, inputs []Input, opts Options) ([]Outcome, error) {
	m := opts.Metrics
	if m == nil {
		m = common.NewMetrics()
	}
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(common.NewCollector(m)); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	for _, in := range inputs {
		m.AddTotalBytes(int64(len(in.Data)))
	}
	m.Start()
	defer m.Stop()
	stop := common.StartProgressPrinter(opts.Progress, m, opts.ProgressInterval)
	defer stop()

	decodeOpts := opts.Decode
	decodeOpts.Observer = teeObserver{m, opts.Decode.Observer}

	outcomes := make([]Outcome, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range inputs {
		in := inputs[i]
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = decodeOne(gctx, in, decodeOpts, m)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		for i := range outcomes {
			if outcomes[i].Digest == "" {
				outcomes[i] = Outcome{Name: inputs[i].Name, Err: err}
			}
		}
		return outcomes, err
	}
	return outcomes, nil
}

func decodeOne(ctx context.Context, in Input, opts ulog.Options, m *common.Metrics) Outcome {
	out := Outcome{Name: in.Name, Digest: common.Digest(in.Data)}
	start := time.Now()
	res, err := ulog.Decode(ctx, in.Data, opts)
	out.Duration = time.Since(start)
	m.DecodeDone(err)
	if err != nil {
		out.Err = err
		common.Logf("decode %s failed after %s: %v", in.Name, out.Duration, err)
		return out
	}
	m.AddBytes(ulog.HeaderSize)
	out.Result = res
	common.Logf("decoded %s (%s, %s): %d datasets, %d messages, %d parameter changes in %s",
		in.Name, common.FormatBytes(int64(len(in.Data))), out.Digest[:12],
		len(res.Datasets()), len(res.LoggedMessages()), len(res.ParameterChanges()), out.Duration)
	return out
}

type teeObserver struct {
	metrics *common.Metrics
	next    ulog.Observer
}

func (t teeObserver) ObserveRecord(recordType byte, size int, skipped bool) {
	t.metrics.ObserveRecord(recordType, size, skipped)
	if t.next != nil {
		t.next.ObserveRecord(recordType, size, skipped)
	}
}
