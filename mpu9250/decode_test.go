package mpu9250

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTwosComplement_Boundaries(t *testing.T) {
	tests := []struct {
		given    uint32
		expected int
	}{
		{0, 0},
		{1, 1},
		{32767, 32767},
		{32768, -32768},
		{65535, -1},
		{0x1000, 4096},
		{0xF000, -4096},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#04x", test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, TwosComplement(test.given, 16))
		})
	}
}

func TestTwosComplement_AllWords(t *testing.T) {
	for w := 0; w <= math.MaxUint16; w++ {
		expected := w
		if w >= 32768 {
			expected = w - 65536
		}
		if got := TwosComplement(uint32(w), 16); got != expected {
			t.Fatalf("TwosComplement(%d, 16) = %d, expected %d", w, got, expected)
		}
	}
}

func TestTwosComplement_OtherWidths(t *testing.T) {
	assert.Equal(t, -1, TwosComplement(0xFF, 8))
	assert.Equal(t, 127, TwosComplement(0x7F, 8))
	assert.Equal(t, -8192, TwosComplement(0x2000, 14))
}

func TestWord(t *testing.T) {
	assert.Equal(t, uint16(0x1234), Word(0x34, 0x12))
	assert.Equal(t, uint16(0x0100), Word(0x00, 0x01))
	assert.Equal(t, uint16(0xFFFF), Word(0xFF, 0xFF))
}

func TestSensitivity(t *testing.T) {
	assert.Equal(t, 0.5, Sensitivity(0))
	assert.Equal(t, 1.0, Sensitivity(128))
	assert.InDelta(t, 1.49609375, Sensitivity(255), 1e-12)
	for raw := 0; raw <= 255; raw++ {
		s := Sensitivity(byte(raw))
		assert.GreaterOrEqual(t, s, 0.5)
		assert.LessOrEqual(t, s, 1.5)
	}
}

func TestScaleResolution(t *testing.T) {
	assert.InDelta(t, 0.149939, MagScaleResolution16, 1e-6)
	assert.InDelta(t, 149.939, 1000*1.0*MagScaleResolution16, 1e-3)
	assert.Equal(t, MagScaleResolution16, Output16Bit.ScaleResolution())
	assert.Equal(t, MagScaleResolution14, Output14Bit.ScaleResolution())
}

func TestUnitVector(t *testing.T) {
	x, y, z := UnitVector(3, 0, 4)
	assert.InDelta(t, 0.6, x, 1e-12)
	assert.InDelta(t, 0.0, y, 1e-12)
	assert.InDelta(t, 0.8, z, 1e-12)

	x, y, z = UnitVector(Acceleration{X: 0, Y: -16384, Z: 0}.Vector())
	assert.Equal(t, []float64{0, -1, 0}, []float64{x, y, z})

	x, y, z = UnitVector(0, 0, 0)
	assert.Equal(t, []float64{0, 0, 0}, []float64{x, y, z})
}

func TestCntl1(t *testing.T) {
	assert.Equal(t, byte(0x12), cntl1(Output16Bit, byte(MagModeContinuous8Hz)))
	assert.Equal(t, byte(0x16), cntl1(Output16Bit, byte(MagModeContinuous100Hz)))
	assert.Equal(t, byte(0x1F), cntl1(Output16Bit, magModeFuseROM))
	assert.Equal(t, byte(0x0F), cntl1(Output14Bit, magModeFuseROM))
}
