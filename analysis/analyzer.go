package analysis

import (
	"context"
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xindex/lib/infra"
	"github.com/benz9527/xindex/lib/tree"
	"github.com/benz9527/xindex/observability"
	"github.com/benz9527/xindex/xlog"
)

const costTolerance = 1e-9

type analyzerCfg struct {
	logger   xlog.XLogger
	stats    *observability.IndexStats
	seed     *uint64
	poolSize int
}

type AnalyzerOption func(*analyzerCfg) error

func WithLogger(logger xlog.XLogger) AnalyzerOption {
	return func(cfg *analyzerCfg) error {
		if logger == nil {
			return infra.NewErrorStack("[analysis] nil logger")
		}
		cfg.logger = logger
		return nil
	}
}

// WithMeter records the comparisons on the meter instead of the
// global meter provider.
func WithMeter(meter metric.Meter) AnalyzerOption {
	return func(cfg *analyzerCfg) error {
		if meter == nil {
			return infra.NewErrorStack("[analysis] nil meter")
		}
		cfg.stats = observability.NewIndexStats(meter)
		return nil
	}
}

// WithShuffleSeed fixes the insertion order of the AVL and RB trees.
func WithShuffleSeed(seed uint64) AnalyzerOption {
	return func(cfg *analyzerCfg) error {
		cfg.seed = &seed
		return nil
	}
}

func WithPoolSize(size int) AnalyzerOption {
	return func(cfg *analyzerCfg) error {
		if size <= 0 {
			return infra.NewErrorStack(fmt.Sprintf("[analysis] invalid pool size %d", size))
		}
		cfg.poolSize = size
		return nil
	}
}

// Analyzer compares the static optimal tree against the self-balancing
// trees built from the same keys. The trees are private to each Compare
// call, so one Analyzer serves concurrent callers.
type Analyzer[K infra.OrderedKey] struct {
	logger   xlog.XLogger
	stats    *observability.IndexStats
	seed     uint64
	poolSize int
}

func NewAnalyzer[K infra.OrderedKey](opts ...AnalyzerOption) (*Analyzer[K], error) {
	cfg := &analyzerCfg{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = xlog.NewXLogger(xlog.WithXLoggerLevel(xlog.LogLevelInfo))
	}
	if cfg.stats == nil {
		cfg.stats = observability.InitIndexStats(context.Background(), "analysis")
	}
	if cfg.seed == nil {
		seed := randv2.Uint64()
		cfg.seed = &seed
	}
	if cfg.poolSize == 0 {
		cfg.poolSize = runtime.NumCPU()
	}
	return &Analyzer[K]{
		logger:   cfg.logger.Named("analysis"),
		stats:    cfg.stats,
		seed:     *cfg.seed,
		poolSize: cfg.poolSize,
	}, nil
}

func (a *Analyzer[K]) shuffled(keys []K) []K {
	order := make([]K, len(keys))
	copy(order, keys)
	rng := randv2.New(randv2.NewPCG(a.seed, uint64(len(keys))))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

func (a *Analyzer[K]) measure(
	ctx context.Context,
	kind string,
	root tree.Node[K],
	dist Distribution[K],
	elapsed time.Duration,
) (TreeReport, error) {
	expected, err := ExpectedCost[K](root, dist.Keys, dist.P, dist.Q)
	if err != nil {
		return TreeReport{}, err
	}
	report := TreeReport{
		Kind:         kind,
		Height:       tree.NodeHeight[K](root),
		Nodes:        tree.Size[K](root),
		ExpectedCost: expected,
		RealizedCost: RealizedCost[K](root, dist.Keys, dist.P),
		Elapsed:      elapsed,
	}
	a.stats.RecordBuild(ctx, kind, elapsed, report.Height)
	a.stats.RecordCost(ctx, kind, report.ExpectedCost, report.RealizedCost)
	return report, nil
}

// Compare builds the optimal tree, plus an AVL and a RB tree fed with the
// keys in shuffled order, and reports the height and the costs of each.
func (a *Analyzer[K]) Compare(ctx context.Context, dist Distribution[K]) (*Report, error) {
	report, err := a.compare(ctx, dist)
	if err != nil {
		a.logger.ErrorStackContext(ctx, err, "tree comparison failed", zap.String("distribution", dist.Name))
		return nil, err
	}
	a.logger.DebugContext(ctx, "tree comparison",
		zap.String("distribution", report.Name),
		zap.Int("keys", report.Keys),
		zap.Float64("optimalCost", report.OptimalCost),
		zap.Float64("avlCost", report.AVL.ExpectedCost),
		zap.Float64("rbtreeCost", report.RBTree.ExpectedCost),
		zap.Int("obstHeight", report.OBST.Height),
		zap.Int("avlHeight", report.AVL.Height),
		zap.Int("rbtreeHeight", report.RBTree.Height),
	)
	return report, nil
}

func (a *Analyzer[K]) compare(ctx context.Context, dist Distribution[K]) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	if err := dist.Validate(); err != nil {
		return nil, err
	}

	n := len(dist.Keys)
	report := &Report{
		Name: dist.Name,
		Keys: n,
	}

	start := time.Now()
	optimal, table, err := tree.BuildOptimalBST[K](dist.Keys, dist.P, dist.Q)
	if err != nil {
		return nil, err
	}
	obstRoot, err := tree.ReconstructOptimalBST[K](table, dist.Keys, 1, n)
	if err != nil {
		return nil, err
	}
	if report.OBST, err = a.measure(ctx, KindOBST, obstRoot, dist, time.Since(start)); err != nil {
		return nil, err
	}
	report.OptimalCost = optimal
	if math.Abs(report.OBST.ExpectedCost-optimal) > costTolerance*math.Max(1, optimal) {
		a.logger.WarnContext(ctx, "optimal tree cost drifts from the table",
			zap.String("distribution", dist.Name),
			zap.Float64("table", optimal),
			zap.Float64("tree", report.OBST.ExpectedCost),
		)
	}

	order := a.shuffled(dist.Keys)

	if err = ctx.Err(); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	start = time.Now()
	avl := tree.NewAVLTree[K]()
	for _, key := range order {
		avl.Insert(key)
	}
	a.stats.RecordInserts(ctx, KindAVL, avl.Len())
	if report.AVL, err = a.measure(ctx, KindAVL, avl.Root(), dist, time.Since(start)); err != nil {
		return nil, err
	}

	if err = ctx.Err(); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	start = time.Now()
	rbt := tree.NewRBTree[K]()
	for _, key := range order {
		rbt.Insert(key)
	}
	a.stats.RecordInserts(ctx, KindRBTree, rbt.Len())
	if report.RBTree, err = a.measure(ctx, KindRBTree, rbt.Root(), dist, time.Since(start)); err != nil {
		return nil, err
	}

	if err = multierr.Combine(
		tree.OrderValidate[K](obstRoot),
		tree.AVLBalanceValidate[K](avl),
		tree.RBTreeValidate[K](rbt),
	); err != nil {
		return nil, err
	}
	return report, nil
}

// BatchCompare runs Compare for every distribution on a worker pool.
// The reports keep the order of dists, a failed one is left nil and its
// error is combined into the returned error.
func (a *Analyzer[K]) BatchCompare(ctx context.Context, dists []Distribution[K]) ([]*Report, error) {
	reports := make([]*Report, len(dists))
	if len(dists) == 0 {
		return reports, nil
	}

	errs := make([]error, len(dists))
	pool, err := ants.NewPool(
		min(a.poolSize, len(dists)),
		ants.WithLogger(xlog.NewAntsXLogger(a.logger)),
		ants.WithPanicHandler(func(v any) {
			a.logger.Error(nil, "tree comparison panic", zap.Any("panic", v))
		}),
	)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[analysis] worker pool")
	}
	defer pool.Release()

	wg := sync.WaitGroup{}
	for i := range dists {
		if err := ctx.Err(); err != nil {
			errs[i] = infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[analysis] %q not submitted", dists[i].Name))
			continue
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			reports[i], errs[i] = a.Compare(ctx, dists[i])
		}); err != nil {
			wg.Done()
			errs[i] = infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[analysis] %q not submitted", dists[i].Name))
		}
	}
	wg.Wait()
	for i := range dists {
		if reports[i] == nil && errs[i] == nil {
			// Recovered by the pool panic handler.
			errs[i] = infra.NewErrorStack(fmt.Sprintf("[analysis] %q aborted", dists[i].Name))
		}
	}
	return reports, multierr.Combine(errs...)
}
