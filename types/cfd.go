package types

import (
	"fmt"
	"strings"
)

type BCKind uint8

const (
	BC_None BCKind = iota
	BC_Exchange
	BC_SlipWall
	BC_Inflow
	BC_Outflow
	BC_FixedTWall
	BC_AdiabaticWall
	BC_ConstantFlux
	BC_SolidCoupledWall
	BC_EnergyBalanceWall
)

var (
	BCNameMap = map[string]BCKind{
		"none":                BC_None,
		"exchange":            BC_Exchange,
		"connected":           BC_Exchange,
		"slip":                BC_SlipWall,
		"slip_wall":           BC_SlipWall,
		"inflow":              BC_Inflow,
		"in":                  BC_Inflow,
		"supersonic_inflow":   BC_Inflow,
		"outflow":             BC_Outflow,
		"out":                 BC_Outflow,
		"fixed_t_wall":        BC_FixedTWall,
		"adiabatic_wall":      BC_AdiabaticWall,
		"wall":                BC_AdiabaticWall,
		"constant_flux":       BC_ConstantFlux,
		"solid_coupled_wall":  BC_SolidCoupledWall,
		"energy_balance_wall": BC_EnergyBalanceWall,
	}
	BCPrintNames = []string{"None", "Exchange", "Slip Wall", "Inflow", "Outflow", "Fixed T Wall",
		"Adiabatic Wall", "Constant Flux", "Solid Coupled Wall", "Energy Balance Wall"}
)

func (bk BCKind) String() string {
	return BCPrintNames[bk]
}

// IsWall reports whether the boundary is a solid surface for load sampling.
func (bk BCKind) IsWall() bool {
	switch bk {
	case BC_SlipWall, BC_FixedTWall, BC_AdiabaticWall, BC_SolidCoupledWall, BC_EnergyBalanceWall:
		return true
	}
	return false
}

func ParseBCKind(label string) (bk BCKind, err error) {
	var (
		ok bool
	)
	if bk, ok = BCNameMap[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown boundary condition %q", label)
	}
	return
}
