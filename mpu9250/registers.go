package mpu9250

// MPU-9250 register map (RM-MPU-9250A-00 v1.6)
const (
	DefaultAddress = 0x68 // AD0 low
	AltAddress     = 0x69 // AD0 high

	regIntPinCfg  = 0x37
	regAccelXOutH = 0x3B
	regAccelYOutH = 0x3D
	regAccelZOutH = 0x3F
	regUserCtrl   = 0x6A

	// USER_CTRL with I2C_MST_EN cleared
	userCtrlMasterDisabled = 0x00
	// INT_PIN_CFG BYPASS_EN
	intPinCfgBypass = 0x02
)

// AK8963 register map (AK8963C datasheet)
const (
	DefaultMagAddress = 0x0C

	regMagHXL   = 0x03
	regMagCNTL1 = 0x0A
	regMagASAX  = 0x10

	// HXL..HZH plus ST2; ST2 has to be read to release the data latch
	magDataLength = 7
	asaLength     = 3

	magModePowerDown = 0x00
	magModeFuseROM   = 0x0F
)

// MagMode is the AK8963 measurement mode written to CNTL1[3:0].
type MagMode byte

const (
	MagModeContinuous8Hz   MagMode = 0x02
	MagModeContinuous100Hz MagMode = 0x06
)

func (m MagMode) String() string {
	switch m {
	case MagModeContinuous8Hz:
		return "continuous-8Hz"
	case MagModeContinuous100Hz:
		return "continuous-100Hz"
	default:
		return "unknown"
	}
}

// OutputBits is the AK8963 output resolution written to CNTL1[4].
type OutputBits byte

const (
	Output14Bit OutputBits = 0x00
	Output16Bit OutputBits = 0x01
)

// Maximum measurable flux density (uT) over the full scale of each resolution.
const (
	MagScaleResolution16 = 4912.0 / 32760.0
	MagScaleResolution14 = 4912.0 / 8190.0
)

func (b OutputBits) String() string {
	if b == Output14Bit {
		return "14-bit"
	}
	return "16-bit"
}

// ScaleResolution returns the uT per LSB for the resolution.
func (b OutputBits) ScaleResolution() float64 {
	if b == Output14Bit {
		return MagScaleResolution14
	}
	return MagScaleResolution16
}

func cntl1(bits OutputBits, mode byte) byte {
	return byte(bits)<<4 | mode
}
