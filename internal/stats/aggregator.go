// Package stats composes the latest-sample resolvers into the paginated
// dashboard view: per-host merged state, fleet summary and pagination, with
// a memoized first page.
package stats

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"teledash/internal/cache"
	"teledash/internal/config"
	"teledash/internal/metrics"
	"teledash/internal/models"
)

// Store is what the aggregator needs from the telemetry store. The pgx
// accessor implements it; tests substitute a stub.
type Store interface {
	NetPage(ctx context.Context, limit, offset int) ([]models.NetSample, error)
	LatestCPU(ctx context.Context, hosts []string) ([]models.CPUSample, error)
	LatestMem(ctx context.Context, hosts []string) ([]models.MemSample, error)
	LatestSystem(ctx context.Context, hosts []string) ([]models.SystemSample, error)
	StatsPage(ctx context.Context, limit, offset int) ([]models.HostRow, error)
	Summary(ctx context.Context, cutoff time.Time) (models.SummaryRow, error)
	History(ctx context.Context, host, metric string, limit int) ([]models.HistoryRow, error)
	PoolStats() models.PoolDiagnostics
}

// Aggregator builds stats and history responses from the store.
type Aggregator struct {
	store         Store
	cache         cache.Cache
	pageSize      int
	historyPoints int
	onlineWindow  time.Duration
	singleQuery   bool
	now           func() time.Time
}

// New wires an aggregator. c may be nil to disable memoization entirely.
func New(store Store, c cache.Cache, cfg *config.Config) *Aggregator {
	return &Aggregator{
		store:         store,
		cache:         c,
		pageSize:      cfg.PageSize,
		historyPoints: cfg.HistoryPoints,
		onlineWindow:  cfg.OnlineWindow,
		singleQuery:   cfg.SingleQuery,
		now:           time.Now,
	}
}

// Stats returns the paginated host overview. Any store error aborts the
// whole request; per-host missing families are expected and fine.
func (a *Aggregator) Stats(ctx context.Context, page, limit int) (*models.StatsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = a.pageSize
	}

	// Only the default first page is memoized; everything else goes to the
	// store every time.
	cacheable := a.cache != nil && page == 1 && limit == a.pageSize
	if cacheable {
		if resp, ok := a.cache.Get(ctx); ok {
			metrics.RecordCacheHit()
			return resp, nil
		}
		metrics.RecordCacheMiss()
	}

	now := a.now()
	cutoff := now.Add(-a.onlineWindow)
	offset := (page - 1) * limit

	var (
		rows []models.HostRow
		sum  models.SummaryRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum, err = a.store.Summary(gctx, cutoff)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = a.hostPage(gctx, limit, offset)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make([]models.HostSummary, 0, len(rows))
	for _, r := range rows {
		data = append(data, buildHostSummary(r, now, a.onlineWindow))
	}

	totalPages := (sum.Total + limit - 1) / limit
	diag := a.store.PoolStats()

	resp := &models.StatsResponse{
		Data: data,
		Summary: models.Summary{
			Total:   sum.Total,
			Online:  sum.Online,
			Offline: sum.Total - sum.Online,
			AvgCPU:  roundValue(sum.AvgCPU, 0),
			AvgRAM:  roundValue(sum.AvgRAM, 0),
		},
		Pagination: models.Pagination{
			Total:      sum.Total,
			TotalPages: totalPages,
			Page:       page,
			Limit:      limit,
		},
		DBDiagnostics: &diag,
	}

	if cacheable {
		a.cache.Set(ctx, resp)
	}
	return resp, nil
}

// hostPage fetches the page's merged rows using the configured strategy:
// one consolidated query, or the identity page followed by the per-family
// resolvers in parallel.
func (a *Aggregator) hostPage(ctx context.Context, limit, offset int) ([]models.HostRow, error) {
	if a.singleQuery {
		return a.store.StatsPage(ctx, limit, offset)
	}

	page, err := a.store.NetPage(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, nil
	}

	hosts := make([]string, len(page))
	for i, s := range page {
		hosts[i] = s.Host
	}

	var (
		cpus []models.CPUSample
		mems []models.MemSample
		syss []models.SystemSample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cpus, err = a.store.LatestCPU(gctx, hosts)
		return err
	})
	g.Go(func() error {
		var err error
		mems, err = a.store.LatestMem(gctx, hosts)
		return err
	})
	g.Go(func() error {
		var err error
		syss, err = a.store.LatestSystem(gctx, hosts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cpuByHost := make(map[string]models.CPUSample, len(cpus))
	for _, s := range cpus {
		cpuByHost[s.Host] = s
	}
	memByHost := make(map[string]models.MemSample, len(mems))
	for _, s := range mems {
		memByHost[s.Host] = s
	}
	sysByHost := make(map[string]models.SystemSample, len(syss))
	for _, s := range syss {
		sysByHost[s.Host] = s
	}

	rows := make([]models.HostRow, len(page))
	for i, net := range page {
		rows[i].Net = net
		if s, ok := cpuByHost[net.Host]; ok {
			c := s
			rows[i].CPU = &c
		}
		if s, ok := memByHost[net.Host]; ok {
			m := s
			rows[i].Mem = &m
		}
		if s, ok := sysByHost[net.Host]; ok {
			y := s
			rows[i].Sys = &y
		}
	}
	return rows, nil
}

// buildHostSummary merges one host's latest family samples into the view
// model, deriving status, rounded percentages, uptime and load strings.
func buildHostSummary(r models.HostRow, now time.Time, window time.Duration) models.HostSummary {
	h := models.HostSummary{
		Hostname:   r.Net.Host,
		LastUpdate: r.Net.Time,
		Status:     "offline",
	}
	if now.Sub(r.Net.Time) < window {
		h.Status = "online"
	}
	if r.Net.IP != nil {
		h.IP = *r.Net.IP
	}
	if r.Net.MAC != nil {
		h.MAC = *r.Net.MAC
	}

	if r.CPU != nil {
		v := cpuPercent(r.CPU)
		h.CPU = &v
		h.CPUBreakdown = cpuBreakdown(r.CPU)
	}

	if r.Mem != nil {
		ram := roundValue(r.Mem.UsedPercent, 0)
		avail := roundValue(r.Mem.AvailablePercent, 100)
		h.RAM = &ram
		h.RAMAvailablePercent = &avail
		if r.Mem.Total != nil {
			h.RAMTotal = *r.Mem.Total
		}
		if r.Mem.Used != nil {
			h.RAMUsed = *r.Mem.Used
		}
	}

	if r.Sys != nil {
		var secs int64
		if r.Sys.Uptime != nil {
			secs = *r.Sys.Uptime
		}
		h.Uptime = formatUptime(secs)
		h.Load = &models.LoadAverages{
			L1:  formatLoad(r.Sys.Load1),
			L5:  formatLoad(r.Sys.Load5),
			L15: formatLoad(r.Sys.Load15),
		}
	}

	return h
}

// History returns the last N points of one metric for one host, oldest
// first. metric is "cpu" unless "memory" is asked for.
func (a *Aggregator) History(ctx context.Context, host, metric string) ([]models.HistoryPoint, error) {
	if metric != "memory" {
		metric = "cpu"
	}

	rows, err := a.store.History(ctx, host, metric, a.historyPoints)
	if err != nil {
		return nil, err
	}

	// The store returns newest-first; reverse for chronological plotting.
	points := make([]models.HistoryPoint, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		usage := 0
		if r.Value != nil && !math.IsNaN(*r.Value) {
			usage = roundPct(*r.Value)
		}
		points = append(points, models.HistoryPoint{
			Time:  r.Time.Local().Format("15:04"),
			Usage: usage,
		})
	}
	return points, nil
}
