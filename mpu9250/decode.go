package mpu9250

import "math"

// TwosComplement interprets the low bits of raw as a signed two's complement value.
func TwosComplement(raw uint32, bits uint) int {
	if raw&(1<<(bits-1)) != 0 {
		return int(raw) - 1<<bits
	}
	return int(raw)
}

// Word assembles a 16 bit word from its two bytes.
func Word(low, high byte) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// Sensitivity converts a fuse ROM adjustment byte (ASA) into the per axis factor:
// Hadj = H * ((ASA-128)*0.5/128 + 1).
func Sensitivity(raw byte) float64 {
	return 0.5*(float64(raw)-128)/128.0 + 1.0
}

// UnitVector scales the triple to unit length. A zero vector is returned unchanged.
func UnitVector(x, y, z float64) (float64, float64, float64) {
	magnitude := math.Sqrt(x*x + y*y + z*z)
	if magnitude == 0 {
		return 0, 0, 0
	}
	return x / magnitude, y / magnitude, z / magnitude
}

func decode16(low, high byte) int {
	return TwosComplement(uint32(Word(low, high)), 16)
}
