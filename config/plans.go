package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Plan describes one purchasable server tier. "free" is the challenge
// tier, everything else is paid at a flat 30-day duration.
type Plan struct {
	RAM   int    `json:"ram"`   // MB
	Disk  int    `json:"disk"`  // MB
	CPU   int    `json:"cpu"`   // percent
	Price string `json:"price"` // display string, "" for free
}

type PlanConfig struct {
	Plans          map[string]Plan   `json:"server_plans"`
	PaymentMethods map[string]string `json:"payment_methods"`
}

const (
	FreePlan     = "free"
	FreeDuration = 24 * time.Hour
	PaidDuration = 30 * 24 * time.Hour
)

var defaultPlans = PlanConfig{
	Plans: map[string]Plan{
		FreePlan: {RAM: 1024, Disk: 2048, CPU: 50},
		"basic":  {RAM: 2048, Disk: 5120, CPU: 100, Price: "$2"},
		"pro":    {RAM: 4096, Disk: 10240, CPU: 200, Price: "$5"},
		"ultra":  {RAM: 8192, Disk: 20480, CPU: 400, Price: "$10"},
	},
	PaymentMethods: map[string]string{
		"paypal": "payments@example.com",
		"usdt":   "TRC20 wallet, ask admin",
	},
}

// LoadPlans reads the plan/payment-method config from path, falling
// back to the compiled-in defaults when the file does not exist.
func LoadPlans(path string) (*PlanConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := defaultPlans
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg PlanConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Plans) == 0 {
		return nil, fmt.Errorf("%s defines no server plans", path)
	}
	if _, ok := cfg.Plans[FreePlan]; !ok {
		return nil, fmt.Errorf("%s must define a %q plan", path, FreePlan)
	}
	return &cfg, nil
}

// Has reports whether name is a configured tier.
func (c *PlanConfig) Has(name string) bool {
	_, ok := c.Plans[name]
	return ok
}

// Duration returns how long one purchase/renewal of the plan lasts.
func (c *PlanConfig) Duration(name string) time.Duration {
	if name == FreePlan {
		return FreeDuration
	}
	return PaidDuration
}

// Names returns plan names with "free" first and the rest sorted, so
// keyboards render in a stable order.
func (c *PlanConfig) Names() []string {
	var names []string
	for name := range c.Plans {
		if name != FreePlan {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if c.Has(FreePlan) {
		names = append([]string{FreePlan}, names...)
	}
	return names
}
