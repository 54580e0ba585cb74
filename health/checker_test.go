package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	h := Healthy("ok")
	if h.Status != StatusHealthy || h.Message != "ok" || h.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", h)
	}

	d := Degraded("retaining").WithDetails(map[string]any{"retained_resources": 2})
	if d.Status != StatusDegraded {
		t.Errorf("Degraded().Status = %v", d.Status)
	}
	if d.Details["retained_resources"] != 2 {
		t.Errorf("Details = %v", d.Details)
	}

	cause := errors.New("closed")
	u := Unhealthy("down", cause).WithDuration(time.Second)
	if u.Status != StatusUnhealthy || !errors.Is(u.Error, cause) {
		t.Errorf("Unhealthy() = %+v", u)
	}
	if u.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", u.Duration)
	}
}

func TestCheckerFunc(t *testing.T) {
	var called bool
	c := NewCheckerFunc("files", func(context.Context) Result {
		called = true
		return Healthy("ok")
	})

	if c.Name() != "files" {
		t.Errorf("Name() = %q, want files", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Check().Status = %v", r.Status)
	}
	if !called {
		t.Error("function not called")
	}
}
