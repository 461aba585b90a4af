package psu

// SCPI commands and queries understood by the supported power supplies.
const (
	cmdIdentity      = "*IDN?"
	cmdReset         = "*RST"
	cmdClearStatus   = "*CLS"
	cmdOpcQuery      = "*OPC?"
	cmdWait          = "*WAI"
	cmdStatusByte    = "*STB?"
	cmdOutputOn      = "OUTPut ON"
	cmdOutputOff     = "OUTPut OFF"
	cmdOutputQuery   = "OUTPut?"
	cmdVoltage       = "VOLTage %.3f"
	cmdVoltageQuery  = "VOLTage?"
	cmdVoltageLimit  = "VOLTage:LIMit %.3f"
	cmdVoltageLimitQ = "VOLTage:LIMit?"
	cmdCurrent       = "CURRent %.3f"
	cmdCurrentQuery  = "CURRent?"
	cmdCurrentLimit  = "CURRent:LIMit %.3f"
	cmdCurrentLimitQ = "CURRent:LIMit?"
	cmdMeasVoltage   = "MEASure:VOLTage?"
	cmdMeasCurrent   = "MEASure:CURRent?"
	cmdMeasPower     = "MEASure:POWer?"
	cmdRemote        = "SYSTem:REMote"
	cmdLocal         = "SYSTem:LOCal"
	cmdRemoteQuery   = "SYSTem:REMote?"
	cmdKeylockOn     = "SYSTem:KEYLock ON"
	cmdKeylockOff    = "SYSTem:KEYLock OFF"
	cmdKeylockQuery  = "SYSTem:KEYLock?"
	cmdErrorQuery    = "SYSTem:ERRor?"

	// Channel-addressed forms.
	cmdAppVoltage      = "APP:VOLT %s"
	cmdAppCurrent      = "APP:CURR %s"
	cmdAppOutput       = "APP:OUTP %s,%d"
	cmdAppVoltageQuery = "APP:VOLT? %d"
	cmdAppCurrentQuery = "APP:CURR? %d"
	cmdAppOutputQuery  = "APP:OUTP? %d"
	cmdAppMeasVoltage  = "APP:MEAS:VOLT? %d"
	cmdAppMeasCurrent  = "APP:MEAS:CURR? %d"
	cmdAppMeasPower    = "APP:MEAS:POW? %d"
)

// NoErrorResponse is the answer to "SYSTem:ERRor?" when the error queue is empty.
const NoErrorResponse = `0,"No error"`
