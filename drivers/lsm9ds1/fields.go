package lsm9ds1

// SubDevice selects one of the two register spaces in the package.
type SubDevice uint8

const (
	AccelGyro SubDevice = iota
	Magnetometer
)

func (s SubDevice) String() string {
	if s == Magnetometer {
		return "mag"
	}
	return "ag"
}

// Field is a bit range inside one 8-bit register of one sub-device.
// Fields are constants of the register map; the driver never mutates them.
type Field struct {
	Name  string
	Dev   SubDevice
	Reg   uint8
	Shift uint8
	Width uint8
}

// Mask returns the in-register mask covering the field.
func (f Field) Mask() uint8 {
	return uint8((uint16(1)<<f.Width)-1) << f.Shift
}

// Max is the largest value representable in the field.
func (f Field) Max() uint8 {
	return uint8((uint16(1) << f.Width) - 1)
}

// Decode extracts the field value from a raw register byte.
func (f Field) Decode(b uint8) uint8 {
	return (b & f.Mask()) >> f.Shift
}

// Encode returns b with the field replaced by v. Bits outside the field are
// preserved; bits of v above the field width are dropped.
func (f Field) Encode(b, v uint8) uint8 {
	m := f.Mask()
	return (b &^ m) | ((v << f.Shift) & m)
}

func agField(name string, reg, shift, width uint8) Field {
	return Field{Name: name, Dev: AccelGyro, Reg: reg, Shift: shift, Width: width}
}

func magField(name string, reg, shift, width uint8) Field {
	return Field{Name: name, Dev: Magnetometer, Reg: reg, Shift: shift, Width: width}
}

// Accelerometer / gyroscope fields.
var (
	FieldActThs         = agField("ACT_THS.ACT_THS", regActThs, 0, 7)
	FieldSleepOnInactEn = agField("ACT_THS.SLEEP_ON_INACT_EN", regActThs, 7, 1)
	FieldActDur         = agField("ACT_DUR", regActDur, 0, 8)
	FieldIntGenCfgXL    = agField("INT_GEN_CFG_XL", regIntGenCfgXL, 0, 8)
	FieldIntGenThsXXL   = agField("INT_GEN_THS_X_XL", regIntGenThsXXL, 0, 8)
	FieldIntGenThsYXL   = agField("INT_GEN_THS_Y_XL", regIntGenThsYXL, 0, 8)
	FieldIntGenThsZXL   = agField("INT_GEN_THS_Z_XL", regIntGenThsZXL, 0, 8)
	FieldDurXL          = agField("INT_GEN_DUR_XL.DUR_XL", regIntGenDurXL, 0, 7)
	FieldWaitXL         = agField("INT_GEN_DUR_XL.WAIT_XL", regIntGenDurXL, 7, 1)
	FieldReferenceG     = agField("REFERENCE_G", regReferenceG, 0, 8)
	FieldInt1Ctrl       = agField("INT1_CTRL", regInt1Ctrl, 0, 8)
	FieldInt2Ctrl       = agField("INT2_CTRL", regInt2Ctrl, 0, 8)
	FieldWhoAmI         = agField("WHO_AM_I", regWhoAmI, 0, 8)

	FieldBwG        = agField("CTRL_REG1_G.BW_G", regCtrlReg1G, 0, 2)
	FieldFsG        = agField("CTRL_REG1_G.FS_G", regCtrlReg1G, 3, 2)
	FieldOdrG       = agField("CTRL_REG1_G.ODR_G", regCtrlReg1G, 5, 3)
	FieldOutSel     = agField("CTRL_REG2_G.OUT_SEL", regCtrlReg2G, 0, 2)
	FieldIntSel     = agField("CTRL_REG2_G.INT_SEL", regCtrlReg2G, 2, 2)
	FieldHpcfG      = agField("CTRL_REG3_G.HPCF_G", regCtrlReg3G, 0, 4)
	FieldHpEn       = agField("CTRL_REG3_G.HP_EN", regCtrlReg3G, 6, 1)
	FieldLpMode     = agField("CTRL_REG3_G.LP_MODE", regCtrlReg3G, 7, 1)
	FieldOrient     = agField("ORIENT_CFG_G.ORIENT", regOrientCfgG, 0, 3)
	FieldSignG      = agField("ORIENT_CFG_G.SIGN", regOrientCfgG, 3, 3)
	FieldIntGenSrcG = agField("INT_GEN_SRC_G", regIntGenSrcG, 0, 8)

	FieldXLDA       = agField("STATUS_REG.XLDA", regStatusReg, 0, 1)
	FieldGDA        = agField("STATUS_REG.GDA", regStatusReg, 1, 1)
	FieldTDA        = agField("STATUS_REG.TDA", regStatusReg, 2, 1)
	FieldBootStatus = agField("STATUS_REG.BOOT_STATUS", regStatusReg, 3, 1)
	FieldStatusReg  = agField("STATUS_REG", regStatusReg, 0, 8)

	Field4DXL1     = agField("CTRL_REG4.4D_XL1", regCtrlReg4, 0, 1)
	FieldLirXL1    = agField("CTRL_REG4.LIR_XL1", regCtrlReg4, 1, 1)
	FieldEnG       = agField("CTRL_REG4.EN_G", regCtrlReg4, 3, 3)
	FieldEnXL      = agField("CTRL_REG5_XL.EN_XL", regCtrlReg5XL, 3, 3)
	FieldDec       = agField("CTRL_REG5_XL.DEC", regCtrlReg5XL, 6, 2)
	FieldBwXL      = agField("CTRL_REG6_XL.BW_XL", regCtrlReg6XL, 0, 2)
	FieldBwScalODR = agField("CTRL_REG6_XL.BW_SCAL_ODR", regCtrlReg6XL, 2, 1)
	FieldFsXL      = agField("CTRL_REG6_XL.FS_XL", regCtrlReg6XL, 3, 2)
	FieldOdrXL     = agField("CTRL_REG6_XL.ODR_XL", regCtrlReg6XL, 5, 3)
	FieldHpis1     = agField("CTRL_REG7_XL.HPIS1", regCtrlReg7XL, 0, 1)
	FieldFDS       = agField("CTRL_REG7_XL.FDS", regCtrlReg7XL, 2, 1)
	FieldDcf       = agField("CTRL_REG7_XL.DCF", regCtrlReg7XL, 5, 2)
	FieldHR        = agField("CTRL_REG7_XL.HR", regCtrlReg7XL, 7, 1)

	FieldSwReset  = agField("CTRL_REG8.SW_RESET", regCtrlReg8, 0, 1)
	FieldBLE      = agField("CTRL_REG8.BLE", regCtrlReg8, 1, 1)
	FieldIfAddInc = agField("CTRL_REG8.IF_ADD_INC", regCtrlReg8, 2, 1)
	FieldSIM      = agField("CTRL_REG8.SIM", regCtrlReg8, 3, 1)
	FieldPpOd     = agField("CTRL_REG8.PP_OD", regCtrlReg8, 4, 1)
	FieldHLActive = agField("CTRL_REG8.H_LACTIVE", regCtrlReg8, 5, 1)
	FieldBDU      = agField("CTRL_REG8.BDU", regCtrlReg8, 6, 1)
	FieldBoot     = agField("CTRL_REG8.BOOT", regCtrlReg8, 7, 1)

	FieldStopOnFth   = agField("CTRL_REG9.STOP_ON_FTH", regCtrlReg9, 0, 1)
	FieldFIFOEn      = agField("CTRL_REG9.FIFO_EN", regCtrlReg9, 1, 1)
	FieldI2CDisable  = agField("CTRL_REG9.I2C_DISABLE", regCtrlReg9, 2, 1)
	FieldDrdyMaskBit = agField("CTRL_REG9.DRDY_MASK_BIT", regCtrlReg9, 3, 1)
	FieldFIFOTempEn  = agField("CTRL_REG9.FIFO_TEMP_EN", regCtrlReg9, 4, 1)
	FieldSleepG      = agField("CTRL_REG9.SLEEP_G", regCtrlReg9, 6, 1)
	FieldStXL        = agField("CTRL_REG10.ST_XL", regCtrlReg10, 0, 1)
	FieldStG         = agField("CTRL_REG10.ST_G", regCtrlReg10, 2, 1)
	FieldIntGenSrcXL = agField("INT_GEN_SRC_XL", regIntGenSrcXL, 0, 8)

	FieldFth     = agField("FIFO_CTRL.FTH", regFIFOCtrl, 0, 5)
	FieldFMode   = agField("FIFO_CTRL.FMODE", regFIFOCtrl, 5, 3)
	FieldFSS     = agField("FIFO_SRC.FSS", regFIFOSrc, 0, 6)
	FieldOvrn    = agField("FIFO_SRC.OVRN", regFIFOSrc, 6, 1)
	FieldFthFlag = agField("FIFO_SRC.FTH", regFIFOSrc, 7, 1)

	FieldIntGenCfgG = agField("INT_GEN_CFG_G", regIntGenCfgG, 0, 8)
	FieldDcrmG      = agField("INT_GEN_THS_XH_G.DCRM_G", regIntGenThsXHG, 7, 1)
	FieldThsGXH     = agField("INT_GEN_THS_XH_G.THS_G_X", regIntGenThsXHG, 0, 7)
	FieldThsGXL     = agField("INT_GEN_THS_XL_G", regIntGenThsXLG, 0, 8)
	FieldThsGYH     = agField("INT_GEN_THS_YH_G.THS_G_Y", regIntGenThsYHG, 0, 7)
	FieldThsGYL     = agField("INT_GEN_THS_YL_G", regIntGenThsYLG, 0, 8)
	FieldThsGZH     = agField("INT_GEN_THS_ZH_G.THS_G_Z", regIntGenThsZHG, 0, 7)
	FieldThsGZL     = agField("INT_GEN_THS_ZL_G", regIntGenThsZLG, 0, 8)
	FieldDurG       = agField("INT_GEN_DUR_G.DUR_G", regIntGenDurG, 0, 7)
	FieldWaitG      = agField("INT_GEN_DUR_G.WAIT_G", regIntGenDurG, 7, 1)
)

// Magnetometer fields.
var (
	FieldWhoAmIM  = magField("WHO_AM_I_M", regWhoAmIM, 0, 8)
	FieldStM      = magField("CTRL_REG1_M.ST", regCtrlReg1M, 0, 1)
	FieldFastODR  = magField("CTRL_REG1_M.FAST_ODR", regCtrlReg1M, 1, 1)
	FieldDO       = magField("CTRL_REG1_M.DO", regCtrlReg1M, 2, 3)
	FieldOM       = magField("CTRL_REG1_M.OM", regCtrlReg1M, 5, 2)
	FieldTempComp = magField("CTRL_REG1_M.TEMP_COMP", regCtrlReg1M, 7, 1)
	FieldSoftRst  = magField("CTRL_REG2_M.SOFT_RST", regCtrlReg2M, 2, 1)
	FieldReboot   = magField("CTRL_REG2_M.REBOOT", regCtrlReg2M, 3, 1)
	FieldFsM      = magField("CTRL_REG2_M.FS", regCtrlReg2M, 5, 2)
	FieldMD       = magField("CTRL_REG3_M.MD", regCtrlReg3M, 0, 2)
	FieldSIMM     = magField("CTRL_REG3_M.SIM", regCtrlReg3M, 2, 1)
	FieldLPM      = magField("CTRL_REG3_M.LP", regCtrlReg3M, 5, 1)
	FieldI2CDisM  = magField("CTRL_REG3_M.I2C_DISABLE", regCtrlReg3M, 7, 1)
	FieldBLEM     = magField("CTRL_REG4_M.BLE", regCtrlReg4M, 1, 1)
	FieldOMZ      = magField("CTRL_REG4_M.OMZ", regCtrlReg4M, 2, 2)
	FieldBDUM     = magField("CTRL_REG5_M.BDU", regCtrlReg5M, 6, 1)
	FieldFastRead = magField("CTRL_REG5_M.FAST_READ", regCtrlReg5M, 7, 1)

	FieldStatusRegM = magField("STATUS_REG_M", regStatusRegM, 0, 8)
	FieldZYXDA      = magField("STATUS_REG_M.ZYXDA", regStatusRegM, 3, 1)
	FieldZYXOR      = magField("STATUS_REG_M.ZYXOR", regStatusRegM, 7, 1)

	FieldIntCfgM = magField("INT_CFG_M", regIntCfgM, 0, 8)
	FieldIEN     = magField("INT_CFG_M.IEN", regIntCfgM, 0, 1)
	FieldIEL     = magField("INT_CFG_M.IEL", regIntCfgM, 1, 1)
	FieldIEA     = magField("INT_CFG_M.IEA", regIntCfgM, 2, 1)
	FieldXYZIEN  = magField("INT_CFG_M.XYZIEN", regIntCfgM, 5, 3)
	FieldIntSrcM = magField("INT_SRC_M", regIntSrcM, 0, 8)
	FieldMROI    = magField("INT_SRC_M.MROI", regIntSrcM, 1, 1)
)

var fieldTable = []Field{
	FieldActThs, FieldSleepOnInactEn, FieldActDur, FieldIntGenCfgXL,
	FieldIntGenThsXXL, FieldIntGenThsYXL, FieldIntGenThsZXL, FieldDurXL, FieldWaitXL,
	FieldReferenceG, FieldInt1Ctrl, FieldInt2Ctrl, FieldWhoAmI,
	FieldBwG, FieldFsG, FieldOdrG, FieldOutSel, FieldIntSel,
	FieldHpcfG, FieldHpEn, FieldLpMode, FieldOrient, FieldSignG, FieldIntGenSrcG,
	FieldStatusReg, FieldXLDA, FieldGDA, FieldTDA, FieldBootStatus,
	Field4DXL1, FieldLirXL1, FieldEnG, FieldEnXL, FieldDec,
	FieldBwXL, FieldBwScalODR, FieldFsXL, FieldOdrXL,
	FieldHpis1, FieldFDS, FieldDcf, FieldHR,
	FieldSwReset, FieldBLE, FieldIfAddInc, FieldSIM, FieldPpOd, FieldHLActive, FieldBDU, FieldBoot,
	FieldStopOnFth, FieldFIFOEn, FieldI2CDisable, FieldDrdyMaskBit, FieldFIFOTempEn, FieldSleepG,
	FieldStXL, FieldStG, FieldIntGenSrcXL,
	FieldFth, FieldFMode, FieldFSS, FieldOvrn, FieldFthFlag,
	FieldIntGenCfgG, FieldDcrmG, FieldDurG, FieldWaitG,
	FieldThsGXH, FieldThsGXL, FieldThsGYH, FieldThsGYL, FieldThsGZH, FieldThsGZL,

	FieldWhoAmIM, FieldStM, FieldFastODR, FieldDO, FieldOM, FieldTempComp,
	FieldSoftRst, FieldReboot, FieldFsM,
	FieldMD, FieldSIMM, FieldLPM, FieldI2CDisM,
	FieldBLEM, FieldOMZ, FieldBDUM, FieldFastRead,
	FieldStatusRegM, FieldZYXDA, FieldZYXOR,
	FieldIntCfgM, FieldIEN, FieldIEL, FieldIEA, FieldXYZIEN, FieldIntSrcM, FieldMROI,
}

// Fields returns a copy of the register field table.
func Fields() []Field {
	out := make([]Field, len(fieldTable))
	copy(out, fieldTable)
	return out
}

// FieldByName looks up a field by its register-map name, e.g. "CTRL_REG1_G.FS_G".
func FieldByName(name string) (Field, bool) {
	for _, f := range fieldTable {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
