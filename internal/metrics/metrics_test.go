package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pershinmr/skyalpha/internal/sensors"
)

func TestObserveRead_CountsFailures(t *testing.T) {
	r, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.ObserveRead(sensors.Gyroscope, nil)
	r.ObserveRead(sensors.Gyroscope, errors.New("nack"))
	r.ObserveRead(sensors.Magnetometer, nil)

	if got := testutil.ToFloat64(r.sensorReads.WithLabelValues(sensors.Gyroscope.String())); got != 2 {
		t.Fatalf("gyro reads=%v want 2", got)
	}
	if got := testutil.ToFloat64(r.sensorFails.WithLabelValues(sensors.Gyroscope.String())); got != 1 {
		t.Fatalf("gyro failures=%v want 1", got)
	}
	if got := testutil.ToFloat64(r.sensorFails.WithLabelValues(sensors.Magnetometer.String())); got != 0 {
		t.Fatalf("mag failures=%v want 0", got)
	}
}

func TestObserveControl(t *testing.T) {
	r, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.ObserveControl(1.5, -2, 90, 40, []float32{40, 41, 42, 43})
	r.ObserveControl(1.5, -2, 90, 40, []float32{40, 41, 42, 43})

	if got := testutil.ToFloat64(r.controlTicks); got != 2 {
		t.Fatalf("ticks=%v want 2", got)
	}
	if got := testutil.ToFloat64(r.attitude.WithLabelValues("pitch")); got != -2 {
		t.Fatalf("pitch=%v want -2", got)
	}
	if got := testutil.ToFloat64(r.motorTorque.WithLabelValues("3")); got != 43 {
		t.Fatalf("motor3=%v want 43", got)
	}
	if got := testutil.ToFloat64(r.torqueCmd); got != 40 {
		t.Fatalf("torque=%v want 40", got)
	}
}

func TestNew_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
