package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/source"
)

// fakeSource is an in-memory Source for engine tests.
type fakeSource struct {
	alerts    map[string]*source.AlertRecord
	devices   map[string]*source.DeviceRecord
	processes map[string][]*source.ProcessRecord
	iocs      map[string][]*source.IOCRecord
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		alerts:    make(map[string]*source.AlertRecord),
		devices:   make(map[string]*source.DeviceRecord),
		processes: make(map[string][]*source.ProcessRecord),
		iocs:      make(map[string][]*source.IOCRecord),
	}
}

func (f *fakeSource) addAlert(id, orgKey, deviceID string, severity int, createTime time.Time) *source.AlertRecord {
	rec := &source.AlertRecord{
		ID: id, OrgKey: orgKey, Title: "Alert " + id,
		Severity: severity, DeviceID: deviceID, CreateTime: createTime,
	}
	f.alerts[id] = rec
	if deviceID != "" {
		if _, ok := f.devices[deviceID]; !ok {
			f.devices[deviceID] = &source.DeviceRecord{
				ID: deviceID, Hostname: "host-" + deviceID, IP: "10.0.0.1", OS: "linux",
			}
		}
	}
	return rec
}

func (f *fakeSource) addIOC(alertID, value string) {
	f.iocs[alertID] = append(f.iocs[alertID], &source.IOCRecord{
		ID: fmt.Sprintf("ioc-%s-%s", alertID, value), AlertID: alertID,
		Value: value, Kind: "hash", ThreatScore: 0.8,
	})
}

func (f *fakeSource) addProcess(alertID, id, parentID, name, hash string) {
	f.processes[alertID] = append(f.processes[alertID], &source.ProcessRecord{
		ID: id, AlertID: alertID, ParentID: parentID, PID: 4242, Name: name, Hash: hash,
	})
}

func (f *fakeSource) AlertByID(ctx context.Context, id string) (*source.AlertRecord, error) {
	rec, ok := f.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, source.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeSource) AlertsInWindow(ctx context.Context, from, to time.Time) ([]*source.AlertRecord, error) {
	var out []*source.AlertRecord
	for _, rec := range f.alerts {
		if !rec.CreateTime.Before(from) && !rec.CreateTime.After(to) {
			out = append(out, rec)
		}
	}
	sortAlerts(out)
	return out, nil
}

func (f *fakeSource) AlertsByOrg(ctx context.Context, orgKey string, from, to time.Time) ([]*source.AlertRecord, error) {
	known := false
	var out []*source.AlertRecord
	for _, rec := range f.alerts {
		if rec.OrgKey != orgKey {
			continue
		}
		known = true
		if !rec.CreateTime.Before(from) && !rec.CreateTime.After(to) {
			out = append(out, rec)
		}
	}
	if !known {
		return nil, fmt.Errorf("org %s: %w", orgKey, source.ErrNotFound)
	}
	sortAlerts(out)
	return out, nil
}

func (f *fakeSource) DeviceByID(ctx context.Context, id string) (*source.DeviceRecord, error) {
	rec, ok := f.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, source.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeSource) ProcessesForAlert(ctx context.Context, alertID string) ([]*source.ProcessRecord, error) {
	return f.processes[alertID], nil
}

func (f *fakeSource) IOCsForAlert(ctx context.Context, alertID string) ([]*source.IOCRecord, error) {
	return f.iocs[alertID], nil
}

func (f *fakeSource) Ping(ctx context.Context) error { return nil }
func (f *fakeSource) Close()                         {}

func sortAlerts(alerts []*source.AlertRecord) {
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreateTime.Equal(alerts[j].CreateTime) {
			return alerts[i].CreateTime.Before(alerts[j].CreateTime)
		}
		return alerts[i].ID < alerts[j].ID
	})
}

// baseTime is the reference clock for engine tests.
var baseTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestService(fs *fakeSource, opts Options) *Service {
	svc := NewService(fs, opts, logging.NewNopLogger(), nil)
	svc.now = func() time.Time { return baseTime }
	return svc
}
