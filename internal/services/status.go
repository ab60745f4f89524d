package services

import (
	"context"
	"sync"
	"time"

	"github.com/RedzAdmin/Dark-Panel/internal/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	statusMu    sync.Mutex
	panelOnline = true
	lastChecked time.Time
)

// PanelStatus reports the last observed panel reachability, for admin stats.
func PanelStatus() string {
	statusMu.Lock()
	defer statusMu.Unlock()
	if lastChecked.IsZero() {
		return "unknown"
	}
	state := "online"
	if !panelOnline {
		state = "offline"
	}
	return state + " (checked " + lastChecked.Format("15:04") + ")"
}

// CheckPanelStatus probes the panel API and alerts the admin when it
// transitions to unreachable. Run from cron.
func CheckPanelStatus(panel Pinger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := panel.Ping(ctx)

	statusMu.Lock()
	wasOnline := panelOnline
	panelOnline = err == nil
	lastChecked = time.Now()
	statusMu.Unlock()

	if err != nil && wasOnline {
		logger.NotifyAdmin("Hosting panel is unreachable: " + err.Error())
	}
}
