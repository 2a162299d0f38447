package solid

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

type Material struct {
	Rho, Cp, K float64
}

type Config struct {
	Material
	Thickness float64
	NLayers   int
	TInit     float64
	// The back face is held at TBack unless BackAdiabatic is set.
	BackAdiabatic bool
	TBack         float64
}

// Slab is a set of one dimensional conduction columns, one under each face of
// a coupled boundary. Layer 0 touches the gas. Temperatures are kept at every
// time level of the gas integration scheme.
type Slab struct {
	Config
	NColumns int
	dx       float64
	T        [][]float64 // [level][column*NLayers + layer]
	DTDt     [][]float64 // [stage][column*NLayers + layer]
	qGas     []float64
	level    int
}

func NewSlab(cfg Config, nColumns, nStages int) (s *Slab, err error) {
	switch {
	case nColumns < 1 || nStages < 1 || cfg.NLayers < 1:
		err = fmt.Errorf("slab needs columns, stages and layers, have %d, %d, %d", nColumns, nStages, cfg.NLayers)
		return
	case !(cfg.Thickness > 0) || !(cfg.Rho > 0) || !(cfg.Cp > 0) || !(cfg.K > 0):
		err = fmt.Errorf("slab needs positive thickness, density, heat capacity and conductivity")
		return
	case !(cfg.TInit > 0):
		err = fmt.Errorf("slab initial temperature must be positive, have %g", cfg.TInit)
		return
	}
	s = &Slab{
		Config:   cfg,
		NColumns: nColumns,
		dx:       cfg.Thickness / float64(cfg.NLayers),
		T:        make([][]float64, nStages+1),
		DTDt:     make([][]float64, nStages),
		qGas:     make([]float64, nColumns),
	}
	n := nColumns * cfg.NLayers
	for i := range s.T {
		s.T[i] = make([]float64, n)
	}
	for i := range s.T[0] {
		s.T[0][i] = cfg.TInit
	}
	for i := range s.DTDt {
		s.DTDt[i] = make([]float64, n)
	}
	return
}

func (s *Slab) column(level, col int) []float64 {
	return s.T[level][col*s.NLayers : (col+1)*s.NLayers]
}

// SurfaceTemperature extrapolates the gas side temperature of a column from
// its first layer and the current gas heat flux.
func (s *Slab) SurfaceTemperature(col int) float64 {
	return s.column(s.level, col)[0] + s.qGas[col]*0.5*s.dx/s.K
}

// SetGasHeatFlux sets the heat flux entering a column from the gas, per unit
// area.
func (s *Slab) SetGasHeatFlux(col int, q float64) {
	s.qGas[col] = q
}

func (s *Slab) heatCapacity() float64 {
	return s.Rho * s.Cp * s.dx
}

// derivative fills DTDt[stage] from temperature level.
func (s *Slab) derivative(level, stage int) {
	var (
		n     = s.NLayers
		g     = s.K / s.dx
		ooCap = 1. / s.heatCapacity()
	)
	for col := 0; col < s.NColumns; col++ {
		var (
			T    = s.column(level, col)
			dTdt = s.DTDt[stage][col*n : (col+1)*n]
			in   = s.qGas[col]
		)
		for i := 0; i < n; i++ {
			var out float64
			if i < n-1 {
				out = g * (T[i] - T[i+1])
			} else if !s.BackAdiabatic {
				out = 2 * g * (T[i] - s.TBack)
			}
			dTdt[i] = (in - out) * ooCap
			in = out
		}
	}
}

// SubStep advances the slab through one stage of an explicit scheme:
// level stage+1 = sum_j a[j]*T[j] + dt*sum_j b[j]*dT/dt[j] over the levels
// and derivatives up to stage.
func (s *Slab) SubStep(dt float64, stage int, a, b []float64) {
	s.derivative(stage, stage)
	dst := s.T[stage+1]
	for i := range dst {
		var v float64
		for j, aj := range a {
			v += aj * s.T[j][i]
		}
		for j, bj := range b {
			v += dt * bj * s.DTDt[j][i]
		}
		dst[i] = v
	}
	s.level = stage + 1
}

// Swap makes the final level of a step the current one.
func (s *Slab) Swap(finalLevel int) {
	copy(s.T[0], s.T[finalLevel])
	s.level = 0
}

// FullStep advances level 0 by dt with backward Euler, holding the gas heat
// flux fixed over the step.
func (s *Slab) FullStep(dt float64) (err error) {
	var (
		n      = s.NLayers
		nt     = n * s.NColumns
		g      = s.K / s.dx
		capDt  = s.heatCapacity() / dt
		A      = sparse.NewDOK(nt, nt)
		rhs    = mat.NewVecDense(nt, nil)
		x      mat.VecDense
		T0     = s.T[0]
		offset int
	)
	if !(dt > 0) {
		return fmt.Errorf("slab step must be positive, have %g", dt)
	}
	for col := 0; col < s.NColumns; col++ {
		offset = col * n
		for i := 0; i < n; i++ {
			var (
				row  = offset + i
				diag = capDt
				b    = capDt * T0[row]
			)
			if i == 0 {
				b += s.qGas[col]
			}
			if i > 0 {
				diag += g
				A.Set(row, row-1, -g)
			}
			if i < n-1 {
				diag += g
				A.Set(row, row+1, -g)
			} else if !s.BackAdiabatic {
				diag += 2 * g
				b += 2 * g * s.TBack
			}
			A.Set(row, row, diag)
			rhs.SetVec(row, b)
		}
	}
	if err = x.SolveVec(A.ToCSR(), rhs); err != nil {
		return fmt.Errorf("slab backward Euler solve: %w", err)
	}
	for i := range T0 {
		T0[i] = x.AtVec(i)
	}
	s.level = 0
	return
}

// Energy is the stored heat per unit area summed over the columns, relative
// to zero temperature.
func (s *Slab) Energy() (e float64) {
	for _, t := range s.T[s.level] {
		e += t
	}
	return e * s.heatCapacity()
}
