package model_problems

import (
	"context"
	"fmt"
	"sync"

	"github.com/notargets/gofv/bc"
	"github.com/notargets/gofv/exchange"
	"github.com/notargets/gofv/integrator"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/snapshot"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/telemetry"
	"github.com/notargets/gofv/types"
	"github.com/notargets/gofv/utils"
)

// RunOptions is what a run needs beyond the case.
type RunOptions struct {
	Config integrator.Config
	Ranks  int
	// ForceFullFace sends messages between blocks on the same rank.
	ForceFullFace bool
	Snapshots     integrator.SnapshotStore
	Samples       integrator.SampleStore
	Sources       integrator.SourceTerms
	Chemistry     integrator.Chemistry
	Log           *telemetry.Logger
	Metrics       *telemetry.Metrics
	RunID         string
	// Restart is the snapshot index to resume from, or -1.
	Restart int
}

func DefaultRunOptions(cfg integrator.Config) RunOptions {
	return RunOptions{Config: cfg, Ranks: 1, Restart: -1}
}

// Result is the state of every rank after a run.
type Result struct {
	RunID string
	// Blocks of all ranks ordered by block id.
	Blocks        []*mesh.Block
	Orchestrators []*integrator.Orchestrator
	Slabs         []*solid.Slab
}

// Run integrates the case on an in-process world of opts.Ranks ranks. Blocks
// are dealt to ranks in contiguous ranges.
func Run(ctx context.Context, c *Case, opts RunOptions) (res *Result, err error) {
	if opts.Ranks < 1 || opts.Ranks > c.NBlocks {
		return nil, fmt.Errorf("%s: %d ranks for %d blocks", c.Name, opts.Ranks, c.NBlocks)
	}
	var (
		world  *exchange.LocalWorld
		owners = utils.NewPartitionMap(opts.Ranks, c.NBlocks)
		owner  = func(block int) int {
			rank, _, _ := owners.GetBucket(block)
			return rank
		}
		mu sync.Mutex
	)
	if world, err = exchange.NewLocalWorld(opts.Ranks); err != nil {
		return
	}
	if opts.RunID == "" {
		opts.RunID = snapshot.NewRunID()
	}
	if opts.Log == nil {
		opts.Log = telemetry.Nop()
	}
	res = &Result{
		RunID:         opts.RunID,
		Blocks:        make([]*mesh.Block, c.NBlocks),
		Orchestrators: make([]*integrator.Orchestrator, opts.Ranks),
	}
	err = world.Run(ctx, func(ctx context.Context, comm exchange.Communicator) (err error) {
		var (
			o      *integrator.Orchestrator
			slabs  []*solid.Slab
			blocks []*mesh.Block
			local  = make(map[int]*mesh.Block)
			nst    = opts.Config.Scheme.Tableau().NStages()
			lo, hi = owners.GetBucketRange(comm.Rank())
		)
		for id := lo; id < hi; id++ {
			var b *mesh.Block
			if b, err = c.BuildBlock(id, nst); err != nil {
				return
			}
			blocks = append(blocks, b)
			local[id] = b
		}
		s := integrator.Setup{
			Gas:       c.Gas,
			Comm:      comm,
			Blocks:    blocks,
			Sources:   opts.Sources,
			Chemistry: opts.Chemistry,
			Snapshots: opts.Snapshots,
			Samples:   opts.Samples,
			Log:       opts.Log,
			Metrics:   opts.Metrics,
			RunID:     opts.RunID,
		}
		if s.Exchange, err = exchange.NewProtocol(comm, local, owner, c.Links, opts.ForceFullFace); err != nil {
			return
		}
		if c.Solid != nil {
			s.Solid = solid.NewAdapter(opts.Config.Coupling)
		}
		if o, err = integrator.New(opts.Config, s); err != nil {
			return
		}
		for bi, b := range blocks {
			ph := bc.Physics{Layout: c.Layout, Gas: c.Gas, Calc: o.Calculator(bi), Viscous: opts.Config.Viscous}
			for _, bnd := range b.Boundaries {
				cond := c.Condition(b.ID, bnd.ID)
				if c.Solid != nil && cond.Kind == types.BC_SolidCoupledWall {
					var sl *solid.Slab
					if sl, err = solid.NewSlab(*c.Solid, len(bnd.Faces), nst); err != nil {
						return
					}
					cond.Solid = sl
					s.Solid.Slabs = append(s.Solid.Slabs, sl)
					slabs = append(slabs, sl)
				}
				if err = bc.Attach(bnd, cond, ph); err != nil {
					return
				}
			}
		}
		mu.Lock()
		res.Orchestrators[comm.Rank()] = o
		for _, b := range blocks {
			res.Blocks[b.ID] = b
		}
		res.Slabs = append(res.Slabs, slabs...)
		mu.Unlock()
		if opts.Restart >= 0 {
			if err = o.Restart(opts.Restart); err != nil {
				return
			}
		}
		return o.Run(ctx)
	})
	return
}
