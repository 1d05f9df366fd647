package models

import "time"

// ============================================================================
// Store rows (scanned from the telemetry relations, one type per family)
// ============================================================================

// NetSample is a row from the network-identity relation. The latest NetSample
// per host defines the host's identity and its lastUpdate time.
type NetSample struct {
	Host string
	Time time.Time
	IP   *string
	MAC  *string
}

// CPUSample is a row from the cpu relation. Depending on the collector
// deployment either UsageIdle or the pre-summed UsageActive is populated.
type CPUSample struct {
	Host        string
	Time        time.Time
	UsageIdle   *float64
	UsageUser   *float64
	UsageSystem *float64
	UsageIOWait *float64
	UsageActive *float64
}

// MemSample is a row from the mem relation.
type MemSample struct {
	Host             string
	Time             time.Time
	UsedPercent      *float64
	AvailablePercent *float64
	Total            *int64
	Used             *int64
}

// SystemSample is a row from the system relation (uptime and load averages).
type SystemSample struct {
	Host   string
	Time   time.Time
	Uptime *int64
	Load1  *float64
	Load5  *float64
	Load15 *float64
}

// HostRow is one merged row for a page host: the identity sample plus the
// latest sample per family. A nil family pointer means the host has never
// reported that family.
type HostRow struct {
	Net NetSample
	CPU *CPUSample
	Mem *MemSample
	Sys *SystemSample
}

// SummaryRow is the raw global aggregate computed by the store. Averages are
// nil when no host reported inside the freshness window.
type SummaryRow struct {
	Total  int
	Online int
	AvgCPU *float64
	AvgRAM *float64
}

// HistoryRow is one point of a single-metric history query.
type HistoryRow struct {
	Time  time.Time
	Value *float64
}

// ============================================================================
// View models (API responses)
// ============================================================================

// CPUBreakdown splits active CPU time into its main buckets, rounded.
type CPUBreakdown struct {
	User   int `json:"user"`
	System int `json:"system"`
	IOWait int `json:"iowait"`
}

// LoadAverages carries the 1/5/15 minute load figures as fixed two-decimal
// strings ("0.00" when the source value was null).
type LoadAverages struct {
	L1  string `json:"l1"`
	L5  string `json:"l5"`
	L15 string `json:"l15"`
}

// HostSummary is the per-host view merged from the latest sample of each
// family. Families the host never reported are simply omitted.
type HostSummary struct {
	Hostname            string        `json:"hostname"`
	IP                  string        `json:"ip,omitempty"`
	MAC                 string        `json:"mac,omitempty"`
	Status              string        `json:"status"`
	LastUpdate          time.Time     `json:"lastUpdate"`
	CPU                 *int          `json:"cpu,omitempty"`
	CPUBreakdown        *CPUBreakdown `json:"cpuBreakdown,omitempty"`
	RAM                 *int          `json:"ram,omitempty"`
	RAMAvailablePercent *int          `json:"ramAvailablePercent,omitempty"`
	RAMTotal            int64         `json:"ramTotal,omitempty"`
	RAMUsed             int64         `json:"ramUsed,omitempty"`
	Uptime              string        `json:"uptime,omitempty"`
	Load                *LoadAverages `json:"load,omitempty"`
}

// Summary is the fleet-wide aggregate shown above the host table.
type Summary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	AvgCPU  int `json:"avgCpu"`
	AvgRAM  int `json:"avgRam"`
}

// Pagination describes the slice of hosts returned by a stats request.
type Pagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
}

// PoolDiagnostics mirrors the connection pool counters at response time.
// Purely informational; nothing reads these for control decisions.
type PoolDiagnostics struct {
	TotalConns     int32 `json:"totalConns"`
	IdleConns      int32 `json:"idleConns"`
	AcquiredConns  int32 `json:"acquiredConns"`
	WaitedAcquires int64 `json:"waitedAcquires"`
}

// StatsResponse is the envelope returned by GET /api/stats.
type StatsResponse struct {
	Data          []HostSummary    `json:"data"`
	Summary       Summary          `json:"summary"`
	Pagination    Pagination       `json:"pagination"`
	DBDiagnostics *PoolDiagnostics `json:"dbDiagnostics,omitempty"`
}

// HistoryPoint is one chart point returned by GET /api/history. Time is a
// display-only local hour:minute string, not round-trippable.
type HistoryPoint struct {
	Time  string `json:"time"`
	Usage int    `json:"usage"`
}
