// Package source provides read access to the persisted alert, device,
// process, and IOC records the graph engine is built from. The records are
// owned by the ingestion pipeline; this package only reads them.
package source

import (
	"context"
	"time"
)

// AlertRecord is a persisted security alert.
type AlertRecord struct {
	ID         string
	OrgKey     string
	Title      string
	Severity   int // 1 (critical) - 10 (informational)
	DeviceID   string
	CreateTime time.Time
}

// DeviceRecord is a registered device/host.
type DeviceRecord struct {
	ID       string
	Hostname string
	IP       string
	OS       string
}

// ProcessRecord is a process observed on an alert.
type ProcessRecord struct {
	ID       string
	AlertID  string
	ParentID string // id of the parent process record, empty at the root
	PID      int
	Name     string
	Hash     string
}

// IOCRecord is an indicator of compromise attached to an alert.
type IOCRecord struct {
	ID          string
	AlertID     string
	Value       string
	Kind        string // ip, hash, domain
	ThreatScore float64
}

// Source is the backing alert/entity registry the engine reads from.
// Implementations must honor ctx cancellation on every call.
type Source interface {
	// AlertByID returns the alert with the given id, or ErrNotFound.
	AlertByID(ctx context.Context, id string) (*AlertRecord, error)

	// AlertsInWindow returns all alerts with create_time in [from, to].
	AlertsInWindow(ctx context.Context, from, to time.Time) ([]*AlertRecord, error)

	// AlertsByOrg returns the org's alerts with create_time in [from, to].
	// An org key matching no alerts at all yields ErrNotFound.
	AlertsByOrg(ctx context.Context, orgKey string, from, to time.Time) ([]*AlertRecord, error)

	// DeviceByID returns the device with the given id, or ErrNotFound.
	DeviceByID(ctx context.Context, id string) (*DeviceRecord, error)

	// ProcessesForAlert returns the processes observed on an alert.
	ProcessesForAlert(ctx context.Context, alertID string) ([]*ProcessRecord, error)

	// IOCsForAlert returns the IOCs attached to an alert.
	IOCsForAlert(ctx context.Context, alertID string) ([]*IOCRecord, error)

	// Ping checks connectivity to the backing registry.
	Ping(ctx context.Context) error

	// Close releases the source's resources.
	Close()
}
