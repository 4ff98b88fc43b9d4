package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// PriorityLevel selects a compute budget profile.
type PriorityLevel string

const (
	PriorityNone    PriorityLevel = "none"
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// PriorityConfig is the compute budget attached to a signed operation.
type PriorityConfig struct {
	ComputeUnits uint32 // Number of compute units
	PriorityFee  uint64 // Priority fee in micro-lamports per unit
	HeapSize     uint32 // Additional heap memory (optional)
}

var priorityProfiles = map[PriorityLevel]PriorityConfig{
	PriorityNone: {},
	PriorityLow: {
		ComputeUnits: 200_000,
		PriorityFee:  1_000,
	},
	PriorityMedium: {
		ComputeUnits: 400_000,
		PriorityFee:  5_000,
	},
	PriorityHigh: {
		ComputeUnits: 800_000,
		PriorityFee:  10_000,
	},
	PriorityExtreme: {
		ComputeUnits: 1_000_000,
		PriorityFee:  50_000,
		HeapSize:     32 * 1024,
	},
}

// ParsePriority maps a level name to its profile. An empty name means none.
func ParsePriority(name string) (PriorityConfig, error) {
	if name == "" {
		return PriorityConfig{}, nil
	}
	cfg, ok := priorityProfiles[PriorityLevel(name)]
	if !ok {
		return PriorityConfig{}, fmt.Errorf("unknown priority level: %s", name)
	}
	return cfg, nil
}

// MaxPriorityFeeLamports is the most the compute budget can add to the fee.
func (c PriorityConfig) MaxPriorityFeeLamports() uint64 {
	return uint64(c.ComputeUnits) * c.PriorityFee / 1_000_000
}

// Instructions builds the compute budget instructions for c, empty when c
// is the zero profile.
func (c PriorityConfig) Instructions() []solana.Instruction {
	var instructions []solana.Instruction

	if c.ComputeUnits > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(c.ComputeUnits).Build())
	}
	if c.PriorityFee > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(c.PriorityFee).Build())
	}
	if c.HeapSize > 0 {
		instructions = append(instructions, computebudget.NewRequestHeapFrameInstruction(c.HeapSize).Build())
	}
	return instructions
}
