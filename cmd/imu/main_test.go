package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu/config"
	"github.com/mklimuk/imu/mpu9250"
	"github.com/mklimuk/imu/sampler"
	"github.com/mklimuk/imu/storage"
)

func TestOpenDevice_Mock(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter = config.AdapterMock
	dev, err := openDevice(context.Background(), cfg, 0)
	require.NoError(t, err)
	defer func() { assert.NoError(t, dev.Close()) }()
	assert.Nil(t, dev.driver)

	s, err := sampler.New(dev.sensor).Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mpu9250.Acceleration{Z: 16384}, s.Acceleration)
	assert.InDelta(t, -40, s.MagneticField.Z, 1e-9)
}

func TestOpenDevice_UnknownAdapter(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter = "ftdi"
	_, err := openDevice(context.Background(), cfg, 0)
	assert.ErrorIs(t, err, ErrUnknownAdapter)
}

func TestDevice_CloseOrder(t *testing.T) {
	var order []string
	d := &device{closers: []func() error{
		func() error { order = append(order, "bus"); return nil },
		func() error { order = append(order, "driver"); return nil },
	}}
	require.NoError(t, d.Close())
	assert.Equal(t, []string{"driver", "bus"}, order)
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	rec, err := storage.Open(filepath.Join(t.TempDir(), "imu.db"))
	require.NoError(t, err)
	defer func() { _ = rec.Close() }()
	id, err := rec.CreateSession(ctx, "mock", nil)
	require.NoError(t, err)
	require.NoError(t, rec.Write(ctx, sampler.Sample{
		Time:          time.UnixMilli(1714564800123),
		Acceleration:  mpu9250.Acceleration{X: 256, Y: -1, Z: 16384},
		MagneticField: mpu9250.MagneticField{X: 614.15, Y: -12.5, Z: 0},
	}))

	var out bytes.Buffer
	n, err := exportCSV(ctx, rec, id, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"timestamp_ms,ax,ay,az,mx,my,mz",
		"1714564800123,256,-1,16384,614.150,-12.500,0.000",
	}, lines)

	_, err = exportCSV(ctx, rec, id+1, &bytes.Buffer{})
	assert.ErrorIs(t, err, errEmptySession)
}
