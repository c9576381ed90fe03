package lsm9ds1

const (
	// 7-bit I2C addresses; the low bit follows the SDO_AG / SDO_M strap.
	AddressAccelGyroLow  = 0x6A
	AddressAccelGyroHigh = 0x6B
	AddressMagLow        = 0x1C
	AddressMagHigh       = 0x1E

	// WHO_AM_I contents.
	WhoAmIAccelGyro = 0x68
	WhoAmIMag       = 0x3D
)

// Accelerometer / gyroscope register space.
const (
	regActThs       = 0x04
	regActDur       = 0x05
	regIntGenCfgXL  = 0x06
	regIntGenThsXXL = 0x07
	regIntGenThsYXL = 0x08
	regIntGenThsZXL = 0x09
	regIntGenDurXL  = 0x0A
	regReferenceG   = 0x0B
	regInt1Ctrl     = 0x0C
	regInt2Ctrl     = 0x0D
	regWhoAmI       = 0x0F
	regCtrlReg1G    = 0x10
	regCtrlReg2G    = 0x11
	regCtrlReg3G    = 0x12
	regOrientCfgG   = 0x13
	regIntGenSrcG   = 0x14
	regOutTempL     = 0x15
	regStatusReg    = 0x17
	regOutXLG       = 0x18
	regCtrlReg4     = 0x1E
	regCtrlReg5XL   = 0x1F
	regCtrlReg6XL   = 0x20
	regCtrlReg7XL   = 0x21
	regCtrlReg8     = 0x22
	regCtrlReg9     = 0x23
	regCtrlReg10    = 0x24
	regIntGenSrcXL  = 0x26
	regOutXLXL      = 0x28
	regFIFOCtrl     = 0x2E
	regFIFOSrc      = 0x2F
	regIntGenCfgG   = 0x30
	regIntGenThsXHG = 0x31
	regIntGenThsXLG = 0x32
	regIntGenThsYHG = 0x33
	regIntGenThsYLG = 0x34
	regIntGenThsZHG = 0x35
	regIntGenThsZLG = 0x36
	regIntGenDurG   = 0x37
)

// Magnetometer register space.
const (
	regOffsetXLM  = 0x05
	regWhoAmIM    = 0x0F
	regCtrlReg1M  = 0x20
	regCtrlReg2M  = 0x21
	regCtrlReg3M  = 0x22
	regCtrlReg4M  = 0x23
	regCtrlReg5M  = 0x24
	regStatusRegM = 0x27
	regOutXLM     = 0x28
	regIntCfgM    = 0x30
	regIntSrcM    = 0x31
	regIntThsLM   = 0x32
)
