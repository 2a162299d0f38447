package flux

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

type FluxType uint8

const (
	FLUX_AUSMDV FluxType = iota
	FLUX_AUSMPlusUp
	FLUX_Hanel
	FLUX_LDFSS0
	FLUX_LDFSS2
	FLUX_EFM
	FLUX_HLLC
	FLUX_HLLE
	FLUX_HLLE2
	FLUX_Roe
	FLUX_HLLEMHD
	FLUX_ASF
	FLUX_AdaptiveEFMAUSMDV
	FLUX_AdaptiveHanelAUSMDV
	FLUX_AdaptiveHanelAUSMPlusUp
	FLUX_AdaptiveLDFSS0LDFSS2
	FLUX_AdaptiveHLLEHLLC
	FLUX_AdaptiveHLLERoe
	FLUX_AdaptiveAUSMDVASF
)

var (
	FluxNames = map[string]FluxType{
		"ausmdv":                      FLUX_AUSMDV,
		"ausm_plus_up":                FLUX_AUSMPlusUp,
		"hanel":                       FLUX_Hanel,
		"ldfss0":                      FLUX_LDFSS0,
		"ldfss2":                      FLUX_LDFSS2,
		"efm":                         FLUX_EFM,
		"hllc":                        FLUX_HLLC,
		"hlle":                        FLUX_HLLE,
		"hlle2":                       FLUX_HLLE2,
		"roe":                         FLUX_Roe,
		"hlle_mhd":                    FLUX_HLLEMHD,
		"asf":                         FLUX_ASF,
		"adaptive_efm_ausmdv":         FLUX_AdaptiveEFMAUSMDV,
		"adaptive_hanel_ausmdv":       FLUX_AdaptiveHanelAUSMDV,
		"adaptive_hanel_ausm_plus_up": FLUX_AdaptiveHanelAUSMPlusUp,
		"adaptive_ldfss0_ldfss2":      FLUX_AdaptiveLDFSS0LDFSS2,
		"adaptive_hlle_hllc":          FLUX_AdaptiveHLLEHLLC,
		"adaptive_hlle_roe":           FLUX_AdaptiveHLLERoe,
		"adaptive_ausmdv_asf":         FLUX_AdaptiveAUSMDVASF,
	}
	FluxPrintNames = []string{"AUSMDV", "AUSM+up", "Hanel", "LDFSS0", "LDFSS2", "EFM", "HLLC",
		"HLLE", "HLLE2", "Roe", "HLLE-MHD", "Skew-symmetric 4th order",
		"Adaptive EFM/AUSMDV", "Adaptive Hanel/AUSMDV", "Adaptive Hanel/AUSM+up",
		"Adaptive LDFSS0/LDFSS2", "Adaptive HLLE/HLLC", "Adaptive HLLE/Roe", "Adaptive AUSMDV/ASF"}

	// AdaptivePairs lists the near-shock scheme first and the smooth one second.
	AdaptivePairs = map[FluxType][2]FluxType{
		FLUX_AdaptiveEFMAUSMDV:       {FLUX_EFM, FLUX_AUSMDV},
		FLUX_AdaptiveHanelAUSMDV:     {FLUX_Hanel, FLUX_AUSMDV},
		FLUX_AdaptiveHanelAUSMPlusUp: {FLUX_Hanel, FLUX_AUSMPlusUp},
		FLUX_AdaptiveLDFSS0LDFSS2:    {FLUX_LDFSS0, FLUX_LDFSS2},
		FLUX_AdaptiveHLLEHLLC:        {FLUX_HLLE, FLUX_HLLC},
		FLUX_AdaptiveHLLERoe:         {FLUX_HLLE, FLUX_Roe},
		FLUX_AdaptiveAUSMDVASF:       {FLUX_AUSMDV, FLUX_ASF},
	}

	ErrMHDNotEnabled = errors.New("MHD flux requires the MHD layout")
	ErrMHDRequired   = errors.New("MHD layout requires an MHD capable flux")
)

func (ft FluxType) Print() (txt string) {
	txt = FluxPrintNames[ft]
	return
}

func (ft FluxType) String() string {
	for name, t := range FluxNames {
		if t == ft {
			return name
		}
	}
	return fmt.Sprintf("flux(%d)", uint8(ft))
}

func (ft FluxType) IsAdaptive() bool {
	_, ok := AdaptivePairs[ft]
	return ok
}

func ParseFluxType(label string) (ft FluxType, err error) {
	var (
		ok bool
	)
	label = strings.ToLower(label)
	if ft, ok = FluxNames[label]; !ok {
		err = fmt.Errorf("unable to use flux named %s", label)
	}
	return
}

func MustFluxType(label string) (ft FluxType) {
	var (
		err error
	)
	if ft, err = ParseFluxType(label); err != nil {
		panic(err)
	}
	return
}

// Config carries the tuning constants of the schemes and of the wall solver.
type Config struct {
	Type           FluxType
	AUSMDVKSwitch  float64
	AUSMDVCEfix    float64
	AUSMPlusUpMInf float64
	AUSMPlusUpKp   float64
	AUSMPlusUpKu   float64
	AUSMPlusUpSig  float64
	RoeEntropyFix  float64 // Harten band as a fraction of the sound speed
	LDFSSDelta     float64 // pressure weighting of LDFSS2
	WallMaxIter    int
	WallTolerance  float64
	WallCap        float64 // wall pressure cap as a multiple of the interior pressure
	OmegaZ         float64 // rotating frame angular velocity about z
}

func DefaultConfig(ft FluxType) Config {
	return Config{
		Type:           ft,
		AUSMDVKSwitch:  10,
		AUSMDVCEfix:    0.125,
		AUSMPlusUpMInf: 0.01,
		AUSMPlusUpKp:   0.25,
		AUSMPlusUpKu:   0.75,
		AUSMPlusUpSig:  1.0,
		RoeEntropyFix:  0.1,
		LDFSSDelta:     2,
		WallMaxIter:    10,
		WallTolerance:  1e-6,
		WallCap:        10,
	}
}

type schemeFunc func(c *Calculator, L, R *state.FlowState, face *mesh.Interface, factor float64,
	F state.ConservedQuantities)

var schemes = map[FluxType]schemeFunc{
	FLUX_AUSMDV:     ausmdv,
	FLUX_AUSMPlusUp: ausmPlusUp,
	FLUX_Hanel:      hanel,
	FLUX_LDFSS0:     ldfss0,
	FLUX_LDFSS2:     ldfss2,
	FLUX_EFM:        efm,
	FLUX_HLLC:       hllc,
	FLUX_HLLE:       hlle,
	FLUX_HLLE2:      hlle2,
	FLUX_Roe:        roe,
	FLUX_HLLEMHD:    hlleMHD,
	FLUX_ASF:        asf,
}

// Calculator computes interface fluxes for one block. It keeps scratch states
// in the face frame, so a calculator must not be shared between goroutines.
type Calculator struct {
	Layout state.Layout
	Gas    gas.Model
	Config Config

	scheme, near, smooth schemeFunc
	lL, lR               *state.FlowState
	stencil              [4]*state.FlowState
	f                    state.ConservedQuantities
	uL, uR, fL, fR       state.ConservedQuantities
	ch                   float64 // divergence cleaning wave speed for this step

	WallNonConverged int
}

func NewCalculator(cfg Config, l state.Layout, gm gas.Model) (c *Calculator, err error) {
	mhdScheme := cfg.Type == FLUX_HLLEMHD
	switch {
	case mhdScheme && !l.MHD():
		err = fmt.Errorf("%w: flux %s", ErrMHDNotEnabled, cfg.Type)
		return
	case l.MHD() && !mhdScheme:
		err = fmt.Errorf("%w: flux %s", ErrMHDRequired, cfg.Type)
		return
	}
	c = &Calculator{
		Layout: l,
		Gas:    gm,
		Config: cfg,
		lL:     state.NewFlowState(l),
		lR:     state.NewFlowState(l),
		f:      l.NewConserved(),
		uL:     l.NewConserved(),
		uR:     l.NewConserved(),
		fL:     l.NewConserved(),
		fR:     l.NewConserved(),
	}
	for i := range c.stencil {
		c.stencil[i] = state.NewFlowState(l)
	}
	if pair, ok := AdaptivePairs[cfg.Type]; ok {
		c.near, c.smooth = schemes[pair[0]], schemes[pair[1]]
		return
	}
	var ok bool
	if c.scheme, ok = schemes[cfg.Type]; !ok {
		err = fmt.Errorf("no flux scheme registered for %s", cfg.Type)
	}
	return
}

// SetStepScalars receives the values reduced once per step and shared by
// every block.
func (c *Calculator) SetStepScalars(ch float64) {
	c.ch = ch
}

func (c *Calculator) IsAdaptive() bool {
	return c.near != nil
}

// Compute adds the flux through face for the given left and right states to
// face.F. The states are moved into the face frame relative to the moving
// face, the scheme works there, and the result is rotated back with the grid
// motion and rotating frame contributions restored.
func (c *Calculator) Compute(L, R *state.FlowState, face *mesh.Interface) {
	c.toLocal(L, c.lL, face)
	c.toLocal(R, c.lR, face)
	c.f.Clear()
	if c.near != nil {
		alpha := face.Alpha
		if alpha > 0 {
			c.near(c, c.lL, c.lR, face, alpha, c.f)
		}
		if alpha < 1 {
			c.smooth(c, c.lL, c.lR, face, 1-alpha, c.f)
		}
	} else {
		c.scheme(c, c.lL, c.lR, face, 1, c.f)
	}
	c.addToGlobal(face)
}

// ComputeWith runs one named scheme with the given weight, bypassing the
// configured selection. The adaptive pairs are built from these calls.
func (c *Calculator) ComputeWith(ft FluxType, L, R *state.FlowState, face *mesh.Interface, factor float64) (err error) {
	fn, ok := schemes[ft]
	if !ok {
		return fmt.Errorf("flux %s cannot be run on its own", ft)
	}
	c.toLocal(L, c.lL, face)
	c.toLocal(R, c.lR, face)
	c.f.Clear()
	fn(c, c.lL, c.lR, face, factor, c.f)
	c.addToGlobal(face)
	return
}

func (c *Calculator) toLocal(src, dst *state.FlowState, face *mesh.Interface) {
	dst.CopyValues(src)
	dst.Vel = face.Frame.ToLocal(src.Vel.Sub(face.GridVel))
	if c.Layout.MHD() {
		dst.B = face.Frame.ToLocal(src.B)
	}
}

func (c *Calculator) addToGlobal(face *mesh.Interface) {
	var (
		l   = c.Layout
		f   = c.f
		mom = face.Frame.ToGlobal(geometry.Vector3{f[l.XMom], f[l.YMom], f[l.ZMom]})
		gv  = face.GridVel
	)
	if l.MHD() {
		b := face.Frame.ToGlobal(geometry.Vector3{f[l.XB], f[l.YB], f[l.ZB]})
		f[l.XB], f[l.YB], f[l.ZB] = b[0], b[1], b[2]
	}
	if !gv.IsZero() {
		f[l.TotEnergy] += 0.5*f[l.Mass]*gv.NormSq() + mom.Dot(gv)
		mom = mom.Add(gv.Scale(f[l.Mass]))
	}
	if w := c.Config.OmegaZ; w != 0 {
		r2 := face.Pos[0]*face.Pos[0] + face.Pos[1]*face.Pos[1]
		f[l.TotEnergy] -= f[l.Mass] * 0.5 * w * w * r2
	}
	f[l.XMom], f[l.YMom], f[l.ZMom] = mom[0], mom[1], mom[2]
	for i, v := range f {
		face.F[i] += v
	}
}

// passive transports species, mode energies and turbulence scalars with the
// mass flux m (already weighted) carrying the values of state up.
func (c *Calculator) passive(up *state.FlowState, m float64, F state.ConservedQuantities) {
	var (
		l = c.Layout
	)
	if l.MultiSpecies() {
		for i, y := range up.MassF {
			F[l.Species+i] += m * y
		}
	}
	for i := 0; i < l.NModes(); i++ {
		F[l.Modes+i] += m * up.UModes[i]
	}
	for i := 0; i < l.NTurb(); i++ {
		F[l.Turb+i] += m * up.Turb[i]
	}
}

// passiveUpwind picks the upwind state by the sign of the mass flux.
func (c *Calculator) passiveUpwind(L, R *state.FlowState, m float64, F state.ConservedQuantities) {
	if m >= 0 {
		c.passive(L, m, F)
	} else {
		c.passive(R, m, F)
	}
}

// addEuler accumulates factor times the mass, momentum and energy fluxes.
func (c *Calculator) addEuler(F state.ConservedQuantities, factor, mass, momN, momT1, momT2, energy float64) {
	var (
		l = c.Layout
	)
	F[l.Mass] += factor * mass
	F[l.XMom] += factor * momN
	F[l.YMom] += factor * momT1
	F[l.ZMom] += factor * momT2
	F[l.TotEnergy] += factor * energy
}
