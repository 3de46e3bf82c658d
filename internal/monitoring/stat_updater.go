package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/isdelr/pollboard/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	highCPUThreshold = 90.0
	alertCooldown    = 15 * time.Minute
)

// StatUpdater periodically samples host resource usage and keeps the latest reading.
type StatUpdater struct {
	eventSvc services.EventServiceProvider
	interval time.Duration
	read     func(ctx context.Context) (models.HostSample, error)
	done     chan struct{}

	mu        sync.RWMutex
	latest    models.HostSample
	hasSample bool
	lastAlert time.Time
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(eventSvc services.EventServiceProvider, interval time.Duration) *StatUpdater {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &StatUpdater{
		eventSvc: eventSvc,
		interval: interval,
		read:     readHostSample,
		done:     make(chan struct{}),
	}
}

// Run starts the periodic updates. It blocks until Stop is called.
func (su *StatUpdater) Run() {
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	close(su.done)
}

// Latest returns the most recent sample, if one was taken.
func (su *StatUpdater) Latest() (models.HostSample, bool) {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest, su.hasSample
}

func (su *StatUpdater) update() {
	ctx, cancel := context.WithTimeout(context.Background(), su.interval)
	defer cancel()

	sample, err := su.read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Non-fatal error sampling host")
		return
	}

	su.mu.Lock()
	su.latest, su.hasSample = sample, true
	alert := sample.CPUPercent > highCPUThreshold && time.Since(su.lastAlert) >= alertCooldown
	if alert {
		su.lastAlert = time.Now()
	}
	su.mu.Unlock()

	if alert && su.eventSvc != nil {
		msg := fmt.Sprintf("High CPU usage (%.1f%%) detected on host.", sample.CPUPercent)
		if err := su.eventSvc.CreateEvent(ctx, services.EventHostAlertCPU, "warn", msg, nil); err != nil {
			log.Error().Err(err).Msg("StatUpdater: Failed to record CPU alert")
		}
	}
}

func readHostSample(ctx context.Context) (models.HostSample, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return models.HostSample{}, fmt.Errorf("cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.HostSample{}, fmt.Errorf("memory: %w", err)
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return models.HostSample{}, fmt.Errorf("uptime: %w", err)
	}

	sample := models.HostSample{
		MemoryPercent: vm.UsedPercent,
		UptimeSeconds: uptime,
		SampledAt:     time.Now().UTC(),
	}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}
	return sample, nil
}
