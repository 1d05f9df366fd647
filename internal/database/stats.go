package database

import (
	"context"
	"time"

	"teledash/internal/models"
)

// Latest-row-per-host selection. DISTINCT ON with (host, time DESC) ordering
// returns the first row after ordering; two rows sharing a timestamp yield
// an arbitrary winner, which is accepted.

// NetPage returns the latest network-identity row per host, ordered by
// hostname ascending and sliced at offset/limit. Hostname ordering (not
// recency) keeps pagination stable across refreshes.
func (db *DB) NetPage(ctx context.Context, limit, offset int) ([]models.NetSample, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT host, time, ip, mac
		FROM (
			SELECT DISTINCT ON (host) host, time, ip, mac
			FROM net
			ORDER BY host, time DESC
		) latest
		ORDER BY host
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.NetSample
	for rows.Next() {
		var s models.NetSample
		if err := rows.Scan(&s.Host, &s.Time, &s.IP, &s.MAC); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// LatestCPU returns the latest cpu row for each host in the filter set.
// Hosts with no cpu rows are simply absent from the result.
func (db *DB) LatestCPU(ctx context.Context, hosts []string) ([]models.CPUSample, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT DISTINCT ON (host) host, time, usage_idle, usage_user, usage_system, usage_iowait, usage_active
		FROM cpu
		WHERE host = ANY($1)
		ORDER BY host, time DESC
	`, hosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.CPUSample
	for rows.Next() {
		var s models.CPUSample
		if err := rows.Scan(&s.Host, &s.Time, &s.UsageIdle, &s.UsageUser, &s.UsageSystem, &s.UsageIOWait, &s.UsageActive); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// LatestMem returns the latest mem row for each host in the filter set.
func (db *DB) LatestMem(ctx context.Context, hosts []string) ([]models.MemSample, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT DISTINCT ON (host) host, time, used_percent, available_percent, total, used
		FROM mem
		WHERE host = ANY($1)
		ORDER BY host, time DESC
	`, hosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.MemSample
	for rows.Next() {
		var s models.MemSample
		if err := rows.Scan(&s.Host, &s.Time, &s.UsedPercent, &s.AvailablePercent, &s.Total, &s.Used); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// LatestSystem returns the latest system (uptime/load) row per host.
func (db *DB) LatestSystem(ctx context.Context, hosts []string) ([]models.SystemSample, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT DISTINCT ON (host) host, time, uptime, load1, load5, load15
		FROM system
		WHERE host = ANY($1)
		ORDER BY host, time DESC
	`, hosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.SystemSample
	for rows.Next() {
		var s models.SystemSample
		if err := rows.Scan(&s.Host, &s.Time, &s.Uptime, &s.Load1, &s.Load5, &s.Load15); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Summary computes the fleet-wide aggregate in one round trip. cutoff is the
// freshness boundary (now minus the online window): online counts latest net
// rows newer than it, and the CPU/RAM averages only include hosts whose
// latest cpu/mem row is newer than it, so stale hosts never dilute them.
func (db *DB) Summary(ctx context.Context, cutoff time.Time) (models.SummaryRow, error) {
	var sum models.SummaryRow
	err := db.pool.QueryRow(ctx, `
		WITH latest_net AS (
			SELECT DISTINCT ON (host) host, time FROM net ORDER BY host, time DESC
		), latest_cpu AS (
			SELECT DISTINCT ON (host) host, time, usage_idle, usage_active FROM cpu ORDER BY host, time DESC
		), latest_mem AS (
			SELECT DISTINCT ON (host) host, time, used_percent FROM mem ORDER BY host, time DESC
		)
		SELECT
			(SELECT COUNT(*) FROM latest_net),
			(SELECT COUNT(*) FROM latest_net WHERE time > $1),
			(SELECT AVG(COALESCE(100 - usage_idle, usage_active)) FROM latest_cpu WHERE time > $1),
			(SELECT AVG(used_percent) FROM latest_mem WHERE time > $1)
	`, cutoff).Scan(&sum.Total, &sum.Online, &sum.AvgCPU, &sum.AvgRAM)
	if err != nil {
		return models.SummaryRow{}, err
	}
	return sum, nil
}

// StatsPage is the consolidated stats query: the hostname-ordered identity
// page as a CTE, with one lateral latest-row probe per family. Equivalent to
// NetPage + LatestCPU/LatestMem/LatestSystem merged by host, in a single
// round trip.
func (db *DB) StatsPage(ctx context.Context, limit, offset int) ([]models.HostRow, error) {
	rows, err := db.pool.Query(ctx, `
		WITH page AS (
			SELECT host, time, ip, mac
			FROM (
				SELECT DISTINCT ON (host) host, time, ip, mac
				FROM net
				ORDER BY host, time DESC
			) latest
			ORDER BY host
			LIMIT $1 OFFSET $2
		)
		SELECT p.host, p.time, p.ip, p.mac,
			c.time, c.usage_idle, c.usage_user, c.usage_system, c.usage_iowait, c.usage_active,
			m.time, m.used_percent, m.available_percent, m.total, m.used,
			s.time, s.uptime, s.load1, s.load5, s.load15
		FROM page p
		LEFT JOIN LATERAL (
			SELECT time, usage_idle, usage_user, usage_system, usage_iowait, usage_active
			FROM cpu WHERE cpu.host = p.host ORDER BY time DESC LIMIT 1
		) c ON true
		LEFT JOIN LATERAL (
			SELECT time, used_percent, available_percent, total, used
			FROM mem WHERE mem.host = p.host ORDER BY time DESC LIMIT 1
		) m ON true
		LEFT JOIN LATERAL (
			SELECT time, uptime, load1, load5, load15
			FROM system WHERE system.host = p.host ORDER BY time DESC LIMIT 1
		) s ON true
		ORDER BY p.host
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merged []models.HostRow
	for rows.Next() {
		var (
			row                       models.HostRow
			cpuTime, memTime, sysTime *time.Time
			cpu                       models.CPUSample
			mem                       models.MemSample
			sys                       models.SystemSample
		)
		err := rows.Scan(
			&row.Net.Host, &row.Net.Time, &row.Net.IP, &row.Net.MAC,
			&cpuTime, &cpu.UsageIdle, &cpu.UsageUser, &cpu.UsageSystem, &cpu.UsageIOWait, &cpu.UsageActive,
			&memTime, &mem.UsedPercent, &mem.AvailablePercent, &mem.Total, &mem.Used,
			&sysTime, &sys.Uptime, &sys.Load1, &sys.Load5, &sys.Load15,
		)
		if err != nil {
			return nil, err
		}

		// A nil lateral time means the host never reported that family.
		if cpuTime != nil {
			cpu.Host, cpu.Time = row.Net.Host, *cpuTime
			row.CPU = &cpu
		}
		if memTime != nil {
			mem.Host, mem.Time = row.Net.Host, *memTime
			row.Mem = &mem
		}
		if sysTime != nil {
			sys.Host, sys.Time = row.Net.Host, *sysTime
			row.Sys = &sys
		}
		merged = append(merged, row)
	}
	return merged, rows.Err()
}
