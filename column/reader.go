package column

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/cache"
	"github.com/treecol/treecol/custom"
	"github.com/treecol/treecol/rbuf"
	"github.com/treecol/treecol/rplan"
	"github.com/treecol/treecol/source"
	"github.com/treecol/treecol/streamer"
)

// Reader reads column entry ranges from a source.  Basket work (fetch,
// decompress, decode) fans out across goroutines; the final assembly is in
// entry order regardless of completion order.  Safe for concurrent
// ReadColumn calls.
type Reader struct {
	src      source.Source
	reg      *streamer.Registry
	resolver *rplan.Resolver
	handlers *custom.Registry
	arrays   *cache.Array
	objects  *cache.Object
	scheme   treecol.OffsetScheme
	workers  int
	logger   *zap.Logger
}

type Option func(*Reader)

// WithHandlers installs custom class handlers, consulted before the
// generic resolver.
func WithHandlers(h *custom.Registry) Option {
	return func(r *Reader) { r.handlers = h }
}

// WithArrayCache caches decoded results by (source, column, range,
// interpretation).
func WithArrayCache(c *cache.Array) Option {
	return func(r *Reader) { r.arrays = c }
}

// WithObjectCache caches parsed baskets by (source, seek), skipping the
// fetch and decompression when overlapping ranges revisit a basket.
func WithObjectCache(c *cache.Object) Option {
	return func(r *Reader) { r.objects = c }
}

// WithWorkers bounds the number of baskets in flight per read.
func WithWorkers(n int) Option {
	return func(r *Reader) { r.workers = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

func NewReader(src source.Source, reg *streamer.Registry, scheme treecol.OffsetScheme, opts ...Option) *Reader {
	r := &Reader{
		src:      src,
		reg:      reg,
		resolver: rplan.NewResolver(reg),
		scheme:   scheme,
		workers:  runtime.GOMAXPROCS(0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolver exposes the reader's plan resolver, sharing its memoized plans.
func (r *Reader) Resolver() *rplan.Resolver { return r.resolver }

// decodePath is the per-basket decode strategy a read resolved to.
type decodePath struct {
	interp  treecol.Interp // non-nil for the interpretation path
	plan    *rplan.Plan    // non-nil for the class plan path
	node    *custom.PlanNode
	handler custom.Handler
}

// ReadColumn decodes entries [start, stop) of a column.  A nil interp is
// inferred from the column's declared type name: custom handlers are
// consulted first, then bare class names resolve through the schema
// registry, and anything else parses directly.
func (r *Reader) ReadColumn(ctx context.Context, col *Column, start, stop int64, in treecol.Interp) (treecol.Result, error) {
	if start < 0 || start > stop || stop > col.Entries {
		return nil, fmt.Errorf("column %s: entry range [%d, %d) outside [0, %d)",
			col.Name, start, stop, col.Entries)
	}
	path, err := r.resolvePath(col, in)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col.Name, err)
	}

	var key string
	if r.arrays != nil {
		key = cache.Fingerprint(r.src.ID(), col.Name, start, stop, pathInterp(path))
		if res, ok := r.arrays.Get(key); ok {
			return res, nil
		}
	}

	lo, hi := overlapping(col.Baskets, start, stop)
	if lo == hi {
		return r.emptyResult(path)
	}
	results := make([]treecol.Result, hi-lo)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := lo; i < hi; i++ {
		i := i
		g.Go(func() error {
			res, err := r.readBasket(gctx, col, i, start, stop, path)
			if err != nil {
				return fmt.Errorf("column %s basket %d: %w", col.Name, i, err)
			}
			results[i-lo] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res, err := concatResults(results)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col.Name, err)
	}
	if r.arrays != nil {
		r.arrays.Put(key, res)
	}
	r.logger.Debug("column read",
		zap.String("column", col.Name),
		zap.Int64("start", start),
		zap.Int64("stop", stop),
		zap.Int("baskets", hi-lo))
	return res, nil
}

// ReadColumns reads the same entry range of several columns concurrently,
// returning one group member per column in argument order.  A failing
// column does not abort the others; all failures are reported together.
func (r *Reader) ReadColumns(ctx context.Context, cols []*Column, start, stop int64) (*treecol.Group, error) {
	results := make([]treecol.Result, len(cols))
	errs := make([]error, len(cols))
	var wg sync.WaitGroup
	for i, col := range cols {
		wg.Add(1)
		go func(i int, col *Column) {
			defer wg.Done()
			results[i], errs[i] = r.ReadColumn(ctx, col, start, stop, nil)
		}(i, col)
	}
	wg.Wait()
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	g := &treecol.Group{}
	for i, col := range cols {
		g.Names = append(g.Names, col.Name)
		g.Elems = append(g.Elems, results[i])
	}
	return g, nil
}

func (r *Reader) resolvePath(col *Column, in treecol.Interp) (*decodePath, error) {
	if in != nil {
		expanded, err := r.resolver.Expand(in)
		if err != nil {
			return nil, err
		}
		return &decodePath{interp: expanded}, nil
	}
	parsed, err := treecol.Parse(col.TypeName)
	if err != nil {
		return nil, err
	}
	if named, ok := parsed.(*treecol.Named); ok {
		if r.handlers != nil {
			node, handler, err := r.handlers.BuildPlan(&custom.Context{
				Column:   col.Name,
				Class:    named.Class,
				Version:  -1,
				TypeName: col.TypeName,
				Registry: r.reg,
			})
			if err != nil {
				return nil, err
			}
			if node != nil {
				return &decodePath{node: node, handler: handler}, nil
			}
		}
		plan, err := r.resolver.Plan(named.Class, -1)
		if err != nil {
			return nil, err
		}
		return &decodePath{plan: plan}, nil
	}
	expanded, err := r.resolver.Expand(parsed)
	if err != nil {
		return nil, err
	}
	return &decodePath{interp: expanded}, nil
}

// pathInterp is the interpretation identity used in cache keys.
func pathInterp(p *decodePath) treecol.Interp {
	if p.interp != nil {
		return p.interp
	}
	if p.node != nil && p.node.Interp != nil {
		return p.node.Interp
	}
	if p.plan != nil {
		return rplan.PlanInterp(p.plan)
	}
	return &treecol.RawBytes{}
}

// overlapping returns the half-open basket index range covering
// [start, stop).  Baskets are in ascending entry order.
func overlapping(baskets []BasketRef, start, stop int64) (int, int) {
	lo := sort.Search(len(baskets), func(i int) bool {
		return baskets[i].EntryStart+baskets[i].Entries > start
	})
	if start >= stop {
		return lo, lo
	}
	hi := sort.Search(len(baskets), func(i int) bool {
		return baskets[i].EntryStart >= stop
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (r *Reader) readBasket(ctx context.Context, col *Column, i int, start, stop int64, path *decodePath) (treecol.Result, error) {
	ref := col.Baskets[i]
	bk, err := r.parsedBasket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if int64(bk.entries) != ref.Entries {
		return nil, fmt.Errorf("basket holds %d entries, index says %d", bk.entries, ref.Entries)
	}
	// Trim to the requested range at the edge baskets.
	lo := int(max64(start, ref.EntryStart) - ref.EntryStart)
	hi := int(min64(stop, ref.EntryStart+ref.Entries) - ref.EntryStart)

	if path.node != nil {
		return r.decodeCustom(bk, lo, hi, path)
	}
	if path.plan != nil {
		return decodeWithPlan(bk, lo, hi, path.plan)
	}
	return decodeWithInterp(bk, lo, hi, path.interp)
}

// parsedBasket fetches and parses one basket, consulting the object cache
// so overlapping reads decompress each basket once.
func (r *Reader) parsedBasket(ctx context.Context, ref BasketRef) (*basket, error) {
	var key string
	if r.objects != nil {
		key = fmt.Sprintf("%s@%d", r.src.ID(), ref.Seek)
		if v, ok := r.objects.Get(key); ok {
			return v.(*basket), nil
		}
	}
	raw, err := r.src.ReadRange(ctx, ref.Seek, ref.NBytes)
	if err != nil {
		return nil, err
	}
	bk, err := parseBasket(raw, ref, r.scheme)
	if err != nil {
		return nil, err
	}
	if r.objects != nil {
		r.objects.Put(key, bk)
	}
	return bk, nil
}

func (r *Reader) decodeCustom(bk *basket, lo, hi int, path *decodePath) (treecol.Result, error) {
	var c *rbuf.Cursor
	if bk.offsets != nil {
		c = rbuf.NewAt(bk.data, int(bk.offsets[lo]))
	} else {
		c = rbuf.New(bk.data)
		if lo > 0 {
			// No offset table: decode and discard the leading entries.
			if _, err := path.handler.Decode(path.node, c, lo); err != nil {
				return nil, err
			}
		}
	}
	raw, err := path.handler.Decode(path.node, c, hi-lo)
	if err != nil {
		return nil, err
	}
	return path.handler.Reconstruct(path.node, raw)
}

func decodeWithPlan(bk *basket, lo, hi int, plan *rplan.Plan) (treecol.Result, error) {
	dec := rplan.NewDecoder(plan)
	if bk.offsets != nil {
		for i := lo; i < hi; i++ {
			b, err := bk.entryBytes(i)
			if err != nil {
				return nil, err
			}
			if err := dec.DecodeEntry(rbuf.New(b)); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		return dec.Result(), nil
	}
	// Entries are self-delimiting; burn through the leading ones.
	c := rbuf.New(bk.data)
	if lo > 0 {
		scratch := rplan.NewDecoder(plan)
		for i := 0; i < lo; i++ {
			if err := scratch.DecodeEntry(c); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
	}
	for i := lo; i < hi; i++ {
		if err := dec.DecodeEntry(c); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return dec.Result(), nil
}

func decodeWithInterp(bk *basket, lo, hi int, in treecol.Interp) (treecol.Result, error) {
	dec, err := rplan.NewEntryDecoder(in)
	if err != nil {
		return nil, err
	}
	if size := in.ItemSize(); size > 0 {
		for i := lo; i < hi; i++ {
			off := i * size
			if off+size > len(bk.data) {
				return nil, fmt.Errorf("entry %d needs bytes [%d, %d) of %d: %w",
					i, off, off+size, len(bk.data), rbuf.ErrTruncated)
			}
			if err := dec.DecodeEntryBytes(bk.data[off : off+size]); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		return dec.Result(), nil
	}
	if bk.offsets != nil {
		for i := lo; i < hi; i++ {
			b, err := bk.entryBytes(i)
			if err != nil {
				return nil, err
			}
			if err := dec.DecodeEntryBytes(b); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		return dec.Result(), nil
	}
	// Variable-length but self-delimiting (strings, containers).
	c := rbuf.New(bk.data)
	if lo > 0 {
		scratch, err := rplan.NewEntryDecoder(in)
		if err != nil {
			return nil, err
		}
		for i := 0; i < lo; i++ {
			if err := scratch.DecodeEntry(c); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
	}
	for i := lo; i < hi; i++ {
		if err := dec.DecodeEntry(c); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return dec.Result(), nil
}

// emptyResult builds a zero-entry result of the right shape.
func (r *Reader) emptyResult(path *decodePath) (treecol.Result, error) {
	switch {
	case path.node != nil:
		raw, err := path.handler.Decode(path.node, rbuf.New(nil), 0)
		if err != nil {
			return nil, err
		}
		return path.handler.Reconstruct(path.node, raw)
	case path.plan != nil:
		return rplan.NewDecoder(path.plan).Result(), nil
	default:
		dec, err := rplan.NewEntryDecoder(path.interp)
		if err != nil {
			return nil, err
		}
		return dec.Result(), nil
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
