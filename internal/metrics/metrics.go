// Package metrics exports flight-loop gauges and counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/sensors"
)

// Recorder owns the collectors. It satisfies the sampler's read observer.
type Recorder struct {
	attitude     *prometheus.GaugeVec
	torqueCmd    prometheus.Gauge
	motorTorque  *prometheus.GaugeVec
	sensorReads  *prometheus.CounterVec
	sensorFails  *prometheus.CounterVec
	controlTicks prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		attitude: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skyalpha_attitude_degrees",
			Help: "Filtered attitude angle.",
		}, []string{"axis"}),
		torqueCmd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skyalpha_torque_command",
			Help: "Operator torque command.",
		}),
		motorTorque: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skyalpha_motor_torque",
			Help: "Clamped torque written to each motor.",
		}, []string{"motor"}),
		sensorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skyalpha_sensor_reads_total",
			Help: "Sensor burst reads attempted.",
		}, []string{"sensor"}),
		sensorFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skyalpha_sensor_failures_total",
			Help: "Sensor burst reads that failed on the bus.",
		}, []string{"sensor"}),
		controlTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skyalpha_control_ticks_total",
			Help: "Control loop iterations.",
		}),
	}
	for _, c := range []prometheus.Collector{r.attitude, r.torqueCmd, r.motorTorque, r.sensorReads, r.sensorFails, r.controlTicks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveRead(kind sensors.Kind, err error) {
	r.sensorReads.WithLabelValues(kind.String()).Inc()
	if err != nil {
		r.sensorFails.WithLabelValues(kind.String()).Inc()
	}
}

// ObserveControl records one control tick.
func (r *Recorder) ObserveControl(roll, pitch, yaw float32, torqueCmd int, motors []float32) {
	r.controlTicks.Inc()
	r.attitude.WithLabelValues("roll").Set(float64(roll))
	r.attitude.WithLabelValues("pitch").Set(float64(pitch))
	r.attitude.WithLabelValues("yaw").Set(float64(yaw))
	r.torqueCmd.Set(float64(torqueCmd))
	for i, m := range motors {
		r.motorTorque.WithLabelValues(strconv.Itoa(i)).Set(float64(m))
	}
}

// Serve exposes /metrics for g on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
