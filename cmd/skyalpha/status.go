package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/flight"
	"github.com/pershinmr/skyalpha/internal/sampler"
)

// statusFields summarizes a snapshot for the periodic status line.
func statusFields(snap flight.Snapshot) logrus.Fields {
	f := logrus.Fields{
		"roll":   fmt.Sprintf("%.2f", snap.Estimate.Roll),
		"pitch":  fmt.Sprintf("%.2f", snap.Estimate.Pitch),
		"yaw":    fmt.Sprintf("%.2f", snap.Estimate.Yaw),
		"torque": snap.TorqueCmd,
		"pulses": snap.Widths,
		"ticks":  snap.ControlTicks,
	}
	for i, st := range snap.Sensors.Status {
		if st.Failures == 0 {
			continue
		}
		f[sampler.State(i).String()+"_failures"] = st.Failures
	}
	if snap.LastError != "" {
		f["error"] = snap.LastError
	}
	return f
}

func logStatus(ctx context.Context, log logrus.FieldLogger, svc *flight.Service, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			log.WithFields(statusFields(svc.Snapshot())).Info("status")
		}
	}
}
