package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/pricewatch/internal/database"
	"github.com/aristath/pricewatch/internal/reliability"
	"github.com/aristath/pricewatch/internal/scheduler"
	"github.com/aristath/pricewatch/internal/worker"
)

// TickReporter exposes the most recent tick
type TickReporter interface {
	LastReport() (worker.TickReport, bool)
}

// MarketDataStatus exposes provider health
type MarketDataStatus interface {
	BreakerSnapshots() []reliability.BreakerSnapshot
	CacheSize() int
}

// DatabaseStatus exposes database health
type DatabaseStatus interface {
	HealthCheck(ctx context.Context) error
	GetStats() (*database.Stats, error)
}

// JobStatusSource exposes scheduled job outcomes
type JobStatusSource interface {
	Status() []scheduler.JobStatus
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status     string                        `json:"status"`
	Uptime     string                        `json:"uptime"`
	LastTick   *worker.TickReport            `json:"last_tick"`
	Providers  []reliability.BreakerSnapshot `json:"providers"`
	CacheSize  int                           `json:"price_cache_size"`
	Database   *DatabaseInfo                 `json:"database,omitempty"`
	Jobs       []scheduler.JobStatus         `json:"jobs,omitempty"`
	CPUPercent float64                       `json:"cpu_percent"`
	MemPercent float64                       `json:"mem_percent"`
	Goroutines int                           `json:"goroutines"`
}

// DatabaseInfo summarizes database health
type DatabaseInfo struct {
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemHandlers serves the system status endpoint
type SystemHandlers struct {
	ticks   TickReporter
	market  MarketDataStatus
	db      DatabaseStatus
	jobs    JobStatusSource
	started time.Time
	log     zerolog.Logger

	hostStats func() (float64, float64)
}

// NewSystemHandlers creates system handlers. db and jobs may be nil.
func NewSystemHandlers(ticks TickReporter, market MarketDataStatus, db DatabaseStatus, jobs JobStatusSource, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		ticks:   ticks,
		market:  market,
		db:      db,
		jobs:    jobs,
		started: time.Now(),
		log:     log.With().Str("handler", "system").Logger(),
	}
	h.hostStats = h.getSystemStats
	return h
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Status:     "ok",
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Providers:  h.market.BreakerSnapshots(),
		CacheSize:  h.market.CacheSize(),
		Goroutines: runtime.NumGoroutine(),
	}

	if report, ok := h.ticks.LastReport(); ok {
		resp.LastTick = &report
	}

	if h.db != nil {
		info := &DatabaseInfo{Healthy: true}
		if err := h.db.HealthCheck(r.Context()); err != nil {
			info.Healthy = false
			info.Error = err.Error()
			resp.Status = "degraded"
		}
		if stats, err := h.db.GetStats(); err == nil {
			info.Stats = stats
		} else {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
		}
		resp.Database = info
	}

	if h.jobs != nil {
		resp.Jobs = h.jobs.Status()
	}

	resp.CPUPercent, resp.MemPercent = h.hostStats()

	h.writeJSON(w, http.StatusOK, resp)
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuAvg := 0.0
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
