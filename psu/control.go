package psu

import "time"

// Identity queries the device identity string.
func (ins *Instrument) Identity() (string, error) {
	return ins.sess.Query(cmdIdentity)
}

// CachedIdentity returns the identity verified when the session was opened, without I/O.
func (ins *Instrument) CachedIdentity() string {
	return ins.sess.Identity()
}

// Reset restores the device defaults and waits for it to re-initialize.
func (ins *Instrument) Reset() error {
	if err := ins.sess.Write(cmdReset); err != nil {
		return err
	}

	time.Sleep(ins.resetDelay)

	return nil
}

// ClearStatus clears the status registers and the error queue.
func (ins *Instrument) ClearStatus() error {
	return ins.sess.Write(cmdClearStatus)
}

// OperationComplete reports whether all pending operations are complete.
func (ins *Instrument) OperationComplete() (bool, error) {
	return ins.queryBool(cmdOpcQuery)
}

// WaitForOperationComplete makes the device finish pending operations before
// processing further commands.
func (ins *Instrument) WaitForOperationComplete() error {
	return ins.sess.Write(cmdWait)
}

// SetOutput enables or disables the output.
func (ins *Instrument) SetOutput(on bool) error {
	if on {
		return ins.sess.Write(cmdOutputOn)
	}

	return ins.sess.Write(cmdOutputOff)
}

// Output reports whether the output is enabled.
func (ins *Instrument) Output() (bool, error) {
	return ins.queryBool(cmdOutputQuery)
}

// SetVoltage sets the output voltage in volts.
func (ins *Instrument) SetVoltage(volts float64) error {
	return ins.writef(cmdVoltage, volts)
}

// Voltage returns the set voltage in volts.
func (ins *Instrument) Voltage() (float64, error) {
	return ins.queryFloat(cmdVoltageQuery)
}

// MeasureVoltage returns the measured output voltage in volts.
func (ins *Instrument) MeasureVoltage() (float64, error) {
	return ins.queryFloat(cmdMeasVoltage)
}

// SetVoltageLimit sets the over-voltage limit in volts.
func (ins *Instrument) SetVoltageLimit(volts float64) error {
	return ins.writef(cmdVoltageLimit, volts)
}

// VoltageLimit returns the over-voltage limit in volts.
func (ins *Instrument) VoltageLimit() (float64, error) {
	return ins.queryFloat(cmdVoltageLimitQ)
}

// SetCurrent sets the output current in amperes.
func (ins *Instrument) SetCurrent(amps float64) error {
	return ins.writef(cmdCurrent, amps)
}

// Current returns the set current in amperes.
func (ins *Instrument) Current() (float64, error) {
	return ins.queryFloat(cmdCurrentQuery)
}

// MeasureCurrent returns the measured output current in amperes.
func (ins *Instrument) MeasureCurrent() (float64, error) {
	return ins.queryFloat(cmdMeasCurrent)
}

// SetCurrentLimit sets the over-current limit in amperes.
func (ins *Instrument) SetCurrentLimit(amps float64) error {
	return ins.writef(cmdCurrentLimit, amps)
}

// CurrentLimit returns the over-current limit in amperes.
func (ins *Instrument) CurrentLimit() (float64, error) {
	return ins.queryFloat(cmdCurrentLimitQ)
}

// MeasurePower returns the measured output power in watts.
func (ins *Instrument) MeasurePower() (float64, error) {
	return ins.queryFloat(cmdMeasPower)
}

// SetRemoteMode switches between remote (true) and local (false) control.
func (ins *Instrument) SetRemoteMode(remote bool) error {
	if remote {
		return ins.sess.Write(cmdRemote)
	}

	return ins.sess.Write(cmdLocal)
}

// RemoteMode reports whether the device is in remote mode.
func (ins *Instrument) RemoteMode() (bool, error) {
	return ins.queryBool(cmdRemoteQuery)
}

// SetKeylock locks or unlocks the front panel.
func (ins *Instrument) SetKeylock(locked bool) error {
	if locked {
		return ins.sess.Write(cmdKeylockOn)
	}

	return ins.sess.Write(cmdKeylockOff)
}

// Keylock reports whether the front panel is locked.
func (ins *Instrument) Keylock() (bool, error) {
	return ins.queryBool(cmdKeylockQuery)
}

// StatusByte returns the IEEE 488.2 status byte.
func (ins *Instrument) StatusByte() (int, error) {
	return ins.queryInt(cmdStatusByte)
}

// ClearErrorQueue empties the error queue.
func (ins *Instrument) ClearErrorQueue() error {
	return ins.sess.Write(cmdClearStatus)
}
