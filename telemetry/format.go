// Package telemetry streams samples as text lines to a mission control relay
// and implements that relay.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mklimuk/imu/mpu9250"
	"github.com/mklimuk/imu/sampler"
)

const DefaultPort = 9998

// FormatText renders "<unix-ms> ax ay az mx my mz\n".
func FormatText(s sampler.Sample) string {
	a, m := s.Acceleration, s.MagneticField
	return fmt.Sprintf("%d %d %d %d %.3f %.3f %.3f\n", s.Time.UnixMilli(), a.X, a.Y, a.Z, m.X, m.Y, m.Z)
}

type jsonSample struct {
	Time int64      `json:"t"`
	A    [3]int     `json:"a"`
	M    [3]float64 `json:"m"`
}

// FormatJSON renders the sample as a single line JSON object.
func FormatJSON(s sampler.Sample) string {
	b, _ := json.Marshal(jsonSample{
		Time: s.Time.UnixMilli(),
		A:    [3]int{s.Acceleration.X, s.Acceleration.Y, s.Acceleration.Z},
		M:    [3]float64{s.MagneticField.X, s.MagneticField.Y, s.MagneticField.Z},
	})
	return string(b) + "\n"
}

// ParseText is the inverse of FormatText. Magnetic components lose precision beyond 3 decimals.
func ParseText(line string) (sampler.Sample, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return sampler.Sample{}, fmt.Errorf("telemetry: expected 7 fields, got %d", len(fields))
	}
	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return sampler.Sample{}, fmt.Errorf("telemetry: invalid timestamp: %w", err)
	}
	var accel [3]int
	for i := range accel {
		accel[i], err = strconv.Atoi(fields[1+i])
		if err != nil {
			return sampler.Sample{}, fmt.Errorf("telemetry: invalid acceleration: %w", err)
		}
	}
	var field [3]float64
	for i := range field {
		field[i], err = strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return sampler.Sample{}, fmt.Errorf("telemetry: invalid magnetic field: %w", err)
		}
	}
	return sampler.Sample{
		Time:          time.UnixMilli(ms),
		Acceleration:  mpu9250.Acceleration{X: accel[0], Y: accel[1], Z: accel[2]},
		MagneticField: mpu9250.MagneticField{X: field[0], Y: field[1], Z: field[2]},
	}, nil
}
