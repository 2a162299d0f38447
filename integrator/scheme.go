package integrator

import (
	"fmt"
	"strings"
)

type Scheme uint8

const (
	SCHEME_Euler Scheme = iota
	SCHEME_PredictorCorrector
	SCHEME_Midpoint
	SCHEME_ClassicRK3
	SCHEME_TVDRK3
	SCHEME_DenmanRK3
)

var (
	SchemeNames = map[string]Scheme{
		"euler":               SCHEME_Euler,
		"predictor_corrector": SCHEME_PredictorCorrector,
		"pc":                  SCHEME_PredictorCorrector,
		"midpoint":            SCHEME_Midpoint,
		"classic_rk3":         SCHEME_ClassicRK3,
		"rk3":                 SCHEME_ClassicRK3,
		"tvd_rk3":             SCHEME_TVDRK3,
		"denman_rk3":          SCHEME_DenmanRK3,
	}
	SchemePrintNames = []string{"Euler", "Predictor-Corrector", "Midpoint", "Classic RK3", "TVD RK3",
		"Denman RK3"}
)

func (s Scheme) Print() string { return SchemePrintNames[s] }

func (s Scheme) String() string {
	return []string{"euler", "predictor_corrector", "midpoint", "classic_rk3", "tvd_rk3", "denman_rk3"}[s]
}

func ParseScheme(label string) (s Scheme, err error) {
	var ok bool
	if s, ok = SchemeNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unable to use integration scheme named %s", label)
	}
	return
}

// Tableau holds an explicit scheme in the form
//
//	U[s+1] = sum_j A[s][j]*U[j] + dt * sum_j B[s][j]*R[j],  j = 0..s
//
// where R[j] is the time derivative evaluated from level j at time
// t + C[j]*dt. The last level, U[N], is the solution at t + dt.
type Tableau struct {
	A, B [][]float64
	C    []float64
}

func (tb Tableau) NStages() int { return len(tb.C) }

// Tau is the fraction of the step at which level k lives.
func (tb Tableau) Tau(level int) float64 {
	if level >= tb.NStages() {
		return 1
	}
	return tb.C[level]
}

func (s Scheme) Tableau() Tableau {
	switch s {
	case SCHEME_PredictorCorrector:
		return Tableau{
			A: [][]float64{{1}, {1, 0}},
			B: [][]float64{{1}, {0.5, 0.5}},
			C: []float64{0, 1},
		}
	case SCHEME_Midpoint:
		return Tableau{
			A: [][]float64{{1}, {1, 0}},
			B: [][]float64{{0.5}, {0, 1}},
			C: []float64{0, 0.5},
		}
	case SCHEME_ClassicRK3:
		return Tableau{
			A: [][]float64{{1}, {1, 0}, {1, 0, 0}},
			B: [][]float64{{0.5}, {-1, 2}, {1. / 6, 4. / 6, 1. / 6}},
			C: []float64{0, 0.5, 1},
		}
	case SCHEME_TVDRK3:
		return Tableau{
			A: [][]float64{{1}, {0.75, 0.25}, {1. / 3, 0, 2. / 3}},
			B: [][]float64{{1}, {0, 0.25}, {0, 0, 2. / 3}},
			C: []float64{0, 1, 0.5},
		}
	case SCHEME_DenmanRK3:
		// Low storage third order scheme written in the U[0] form.
		return Tableau{
			A: [][]float64{{1}, {1, 0}, {1, 0, 0}},
			B: [][]float64{{8. / 15}, {0.25, 5. / 12}, {0.25, 0, 0.75}},
			C: []float64{0, 8. / 15, 2. / 3},
		}
	}
	return Tableau{
		A: [][]float64{{1}},
		B: [][]float64{{1}},
		C: []float64{0},
	}
}
