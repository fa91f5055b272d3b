package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("status = %q, want %q", report.Status, Healthy)
	}
	if report.Checks["cache_store"] != CheckOK || report.Checks["detector"] != CheckOK {
		t.Errorf("checks = %+v", report.Checks)
	}
}

func TestCheck_DetectorDown_Degraded(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{err: errors.New("unreachable")})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("status = %q, want %q", report.Status, Degraded)
	}
	if report.Checks["detector"] != CheckError {
		t.Errorf("detector check = %q, want error", report.Checks["detector"])
	}
}

func TestCheck_NilDependenciesSkipped(t *testing.T) {
	svc := New(nil, nil)

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("status = %q, want %q", report.Status, Healthy)
	}
	if len(report.Checks) != 0 {
		t.Errorf("checks = %+v, want none", report.Checks)
	}
}
