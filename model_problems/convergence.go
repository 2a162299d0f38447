package model_problems

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gofv/integrator"
	"github.com/notargets/gofv/sod_shock_tube"
)

// ConvergencePoint is the density error of one shock tube run against the
// exact solution.
type ConvergencePoint struct {
	NCells   int
	L1, LInf float64
	// Order is the observed L1 order against the previous point, 0 for the first.
	Order float64
}

// SodConvergence runs the shock tube to time t at each resolution, in the
// order given.
func SodConvergence(ctx context.Context, cfg integrator.Config, cells []int, t float64) (pts []ConvergencePoint, err error) {
	var (
		rs  = sod_shock_tube.Sod()
		res *Result
		c   *Case
	)
	cfg.TargetTime = t
	for i, n := range cells {
		if c, err = SodShockTube(n, 1); err != nil {
			return
		}
		if res, err = Run(ctx, c, DefaultRunOptions(cfg)); err != nil {
			return nil, fmt.Errorf("%d cells: %w", n, err)
		}
		var X, Rho, exact []float64
		for _, b := range res.Blocks {
			for _, cell := range b.Cells {
				X = append(X, cell.Pos[0])
				Rho = append(Rho, cell.FS.Rho)
			}
		}
		for _, s := range rs.Profile(X, 0.5, t) {
			exact = append(exact, s.Rho)
		}
		p := ConvergencePoint{
			NCells: n,
			L1:     floats.Distance(Rho, exact, 1) / float64(n),
			LInf:   floats.Distance(Rho, exact, math.Inf(1)),
		}
		if i > 0 {
			prev := pts[i-1]
			p.Order = math.Log(prev.L1/p.L1) / math.Log(float64(n)/float64(prev.NCells))
		}
		pts = append(pts, p)
	}
	return
}
