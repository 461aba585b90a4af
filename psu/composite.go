package psu

import (
	"time"
)

// MaxErrorQueueDepth bounds how many entries ErrorQueue drains in one call, so
// a device that never reports an empty queue cannot stall the caller forever.
const MaxErrorQueueDepth = 32

// MeasurementSnapshot is a point-in-time view of the output.
type MeasurementSnapshot struct {
	Voltage       float64 `json:"voltage" yaml:"voltage"`
	Current       float64 `json:"current" yaml:"current"`
	Power         float64 `json:"power" yaml:"power"`
	OutputEnabled bool    `json:"output_enabled" yaml:"output_enabled"`
	SetVoltage    float64 `json:"set_voltage" yaml:"set_voltage"`
	SetCurrent    float64 `json:"set_current" yaml:"set_current"`
}

// DeviceInfo aggregates identity, output state and the optional device fields.
// A nil optional field means the device did not answer the query in time.
type DeviceInfo struct {
	Identity      string   `json:"identity" yaml:"identity"`
	OutputEnabled bool     `json:"output_enabled" yaml:"output_enabled"`
	VoltageLimit  *float64 `json:"voltage_limit" yaml:"voltage_limit"`
	CurrentLimit  *float64 `json:"current_limit" yaml:"current_limit"`
	RemoteMode    *bool    `json:"remote_mode" yaml:"remote_mode"`
	Keylock       *bool    `json:"keylock" yaml:"keylock"`
	StatusByte    *int     `json:"status_byte" yaml:"status_byte"`
	Errors        []string `json:"errors" yaml:"errors"`
}

// ConfigureOutput sets the voltage, then the current, then enables the output
// if enable is true. A failure stops the sequence; earlier steps are not undone.
func (ins *Instrument) ConfigureOutput(volts, amps float64, enable bool) error {
	if err := ins.SetVoltage(volts); err != nil {
		return err
	}

	if err := ins.SetCurrent(amps); err != nil {
		return err
	}

	if enable {
		return ins.SetOutput(true)
	}

	return nil
}

// SafeShutdown disables the output, then sets the voltage to zero, then waits
// for the shutdown delay.
func (ins *Instrument) SafeShutdown() error {
	if err := ins.SetOutput(false); err != nil {
		return err
	}

	if err := ins.SetVoltage(0); err != nil {
		return err
	}

	time.Sleep(ins.shutdownDelay)

	return nil
}

// MeasurementStatus queries measured voltage, current and power, output state,
// set voltage and set current, in that order. Any failure aborts the call.
func (ins *Instrument) MeasurementStatus() (*MeasurementSnapshot, error) {
	var (
		snap MeasurementSnapshot
		err  error
	)

	if snap.Voltage, err = ins.MeasureVoltage(); err != nil {
		return nil, err
	}
	if snap.Current, err = ins.MeasureCurrent(); err != nil {
		return nil, err
	}
	if snap.Power, err = ins.MeasurePower(); err != nil {
		return nil, err
	}
	if snap.OutputEnabled, err = ins.Output(); err != nil {
		return nil, err
	}
	if snap.SetVoltage, err = ins.Voltage(); err != nil {
		return nil, err
	}
	if snap.SetCurrent, err = ins.Current(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// ErrorQueue drains the device error queue. It stops at the first
// `0,"No error"` response or at the first failed query; failures end the
// drain and are not reported.
func (ins *Instrument) ErrorQueue() []string {
	errs := make([]string, 0)

	for range MaxErrorQueueDepth {
		resp, err := ins.sess.Query(cmdErrorQuery)
		if err != nil {
			ins.logger.Debug("psu: error queue drain stopped", "error", err)
			break
		}

		if resp == NoErrorResponse {
			break
		}

		errs = append(errs, resp)
	}

	return errs
}

// DeviceInfo collects identity and output state, which must succeed, and then
// each optional field independently. An optional field whose query times out is
// left nil; any other failure aborts the call.
func (ins *Instrument) DeviceInfo() (*DeviceInfo, error) {
	var (
		info DeviceInfo
		err  error
	)

	if info.Identity, err = ins.Identity(); err != nil {
		return nil, err
	}
	if info.OutputEnabled, err = ins.Output(); err != nil {
		return nil, err
	}

	if info.VoltageLimit, err = optional(ins, cmdVoltageLimitQ, ins.VoltageLimit); err != nil {
		return nil, err
	}
	if info.CurrentLimit, err = optional(ins, cmdCurrentLimitQ, ins.CurrentLimit); err != nil {
		return nil, err
	}
	if info.RemoteMode, err = optional(ins, cmdRemoteQuery, ins.RemoteMode); err != nil {
		return nil, err
	}
	if info.Keylock, err = optional(ins, cmdKeylockQuery, ins.Keylock); err != nil {
		return nil, err
	}
	if info.StatusByte, err = optional(ins, cmdStatusByte, ins.StatusByte); err != nil {
		return nil, err
	}

	info.Errors = ins.ErrorQueue()

	return &info, nil
}
