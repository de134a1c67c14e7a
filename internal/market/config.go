package market

// Config holds the engine parameters. Zero values are filled in by
// applyDefaults, so a partially specified YAML file is fine.
type Config struct {
	ID         string `yaml:"id"`
	TickRateHz int    `yaml:"tick_rate_hz"`

	// DeliveryTickEveryTicks is how many engine ticks pass between
	// automatic +1 progress steps on an active delivery.
	DeliveryTickEveryTicks int `yaml:"delivery_tick_every_ticks"`

	// PromotionSweepEveryTicks is the cadence of the promotion expiry
	// sweep. The sweep also runs on an explicit CHECK_PROMOTIONS op.
	PromotionSweepEveryTicks int `yaml:"promotion_sweep_every_ticks"`

	// ReplyDelayTicks is the delay before a scheduled one-shot
	// auto-reply lands on an advice/support task.
	ReplyDelayTicks int `yaml:"reply_delay_ticks"`

	// StateEveryTicks is the cadence of STATE summary frames and
	// read-model index exports.
	StateEveryTicks int `yaml:"state_every_ticks"`

	StartingCredits int `yaml:"starting_credits"`

	RateLimits RateLimitConfig `yaml:"rate_limits"`
}

// RateLimitConfig bounds per-session op throughput at the transport.
type RateLimitConfig struct {
	OpsPerSec float64 `yaml:"ops_per_sec"`
	OpsBurst  int     `yaml:"ops_burst"`
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "freshvault-1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.DeliveryTickEveryTicks <= 0 {
		c.DeliveryTickEveryTicks = 5
	}
	if c.PromotionSweepEveryTicks <= 0 {
		c.PromotionSweepEveryTicks = 300
	}
	if c.ReplyDelayTicks <= 0 {
		c.ReplyDelayTicks = 15
	}
	if c.StateEveryTicks <= 0 {
		c.StateEveryTicks = 25
	}
	if c.StartingCredits <= 0 {
		c.StartingCredits = 1250
	}
	c.RateLimits.applyDefaults()
}

func (rl *RateLimitConfig) applyDefaults() {
	if rl.OpsPerSec <= 0 {
		rl.OpsPerSec = 20
	}
	if rl.OpsBurst <= 0 {
		rl.OpsBurst = 40
	}
}
