package combat

import (
	"fmt"
	"time"
)

// Config holds the encounter tuning constants.
type Config struct {
	TickPeriod time.Duration
	// APScale converts speed into AP gained per tick.
	APScale float64

	JitterMax       float64 // attacks add uniform [0, JitterMax)
	SkillMultiplier float64
	SkillMPCost     int
	DefendBonus     float64 // fractional defense increase while defending
	PetTargetChance float64 // chance the enemy goes for a living pet

	CaptureThreshold  float64 // enemy hp fraction below which capture is likely
	CaptureHighChance float64
	CaptureLowChance  float64
	CaptureDelayTicks int

	EscapeBase     float64
	EscapePerSpeed float64
	EscapeMin      float64
	EscapeMax      float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		TickPeriod:        50 * time.Millisecond,
		APScale:           0.2,
		JitterMax:         5,
		SkillMultiplier:   1.4,
		SkillMPCost:       10,
		DefendBonus:       0.5,
		PetTargetChance:   0.3,
		CaptureThreshold:  0.2,
		CaptureHighChance: 0.6,
		CaptureLowChance:  0.15,
		CaptureDelayTicks: 16,
		EscapeBase:        0.5,
		EscapePerSpeed:    0.02,
		EscapeMin:         0.1,
		EscapeMax:         0.9,
	}
}

// Validate rejects tunings under which an encounter could stall.
func (c Config) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive, got %s", c.TickPeriod)
	}
	if c.APScale <= 0 {
		return fmt.Errorf("ap scale must be positive, got %g", c.APScale)
	}
	if c.SkillMultiplier < 1 {
		return fmt.Errorf("skill multiplier must be >= 1, got %g", c.SkillMultiplier)
	}
	if c.JitterMax < 0 || c.DefendBonus < 0 || c.SkillMPCost < 0 || c.CaptureDelayTicks < 0 {
		return fmt.Errorf("jitter, defend bonus, skill cost and capture delay must be non-negative")
	}
	for name, p := range map[string]float64{
		"pet target chance":   c.PetTargetChance,
		"capture threshold":   c.CaptureThreshold,
		"capture high chance": c.CaptureHighChance,
		"capture low chance":  c.CaptureLowChance,
		"escape min":          c.EscapeMin,
		"escape max":          c.EscapeMax,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, p)
		}
	}
	if c.EscapeMin > c.EscapeMax {
		return fmt.Errorf("escape min %g exceeds escape max %g", c.EscapeMin, c.EscapeMax)
	}
	return nil
}
