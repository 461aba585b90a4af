package psu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Channels is the number of outputs addressed by the APP: command family.
const Channels = 3

// ErrInvalidChannel indicates a channel number outside [1, Channels].
var ErrInvalidChannel = errors.New("psu: invalid channel")

// ChannelSnapshot is a point-in-time view of one channel of a multi-channel supply.
type ChannelSnapshot struct {
	Channel       int     `json:"channel" yaml:"channel"`
	Voltage       float64 `json:"voltage" yaml:"voltage"`
	Current       float64 `json:"current" yaml:"current"`
	Power         float64 `json:"power" yaml:"power"`
	OutputEnabled bool    `json:"output_enabled" yaml:"output_enabled"`
	SetVoltage    float64 `json:"set_voltage" yaml:"set_voltage"`
	SetCurrent    float64 `json:"set_current" yaml:"set_current"`
}

func checkChannel(ch int) error {
	if ch < 1 || ch > Channels {
		return fmt.Errorf("%w: %d, want 1-%d", ErrInvalidChannel, ch, Channels)
	}

	return nil
}

func joinValues(values ...float64) string {
	return strings.Join(lo.Map(values, func(v float64, _ int) string { return FormatValue(v) }), ",")
}

// SetChannelVoltages sets the voltages of channels 1, 2 and 3 in one command.
func (ins *Instrument) SetChannelVoltages(v1, v2, v3 float64) error {
	return ins.writef(cmdAppVoltage, joinValues(v1, v2, v3))
}

// SetChannelCurrents sets the currents of channels 1, 2 and 3 in one command.
func (ins *Instrument) SetChannelCurrents(i1, i2, i3 float64) error {
	return ins.writef(cmdAppCurrent, joinValues(i1, i2, i3))
}

// SetChannelOutput enables or disables the output of channel ch.
func (ins *Instrument) SetChannelOutput(on bool, ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}

	return ins.writef(cmdAppOutput, lo.Ternary(on, "ON", "OFF"), ch)
}

// ChannelVoltage returns the set voltage of channel ch.
func (ins *Instrument) ChannelVoltage(ch int) (float64, error) {
	return ins.channelFloat(cmdAppVoltageQuery, ch)
}

// ChannelCurrent returns the set current of channel ch.
func (ins *Instrument) ChannelCurrent(ch int) (float64, error) {
	return ins.channelFloat(cmdAppCurrentQuery, ch)
}

// ChannelOutput reports whether the output of channel ch is enabled.
func (ins *Instrument) ChannelOutput(ch int) (bool, error) {
	if err := checkChannel(ch); err != nil {
		return false, err
	}

	return ins.queryBool(fmt.Sprintf(cmdAppOutputQuery, ch))
}

// MeasureChannelVoltage returns the measured voltage of channel ch.
func (ins *Instrument) MeasureChannelVoltage(ch int) (float64, error) {
	return ins.channelFloat(cmdAppMeasVoltage, ch)
}

// MeasureChannelCurrent returns the measured current of channel ch.
func (ins *Instrument) MeasureChannelCurrent(ch int) (float64, error) {
	return ins.channelFloat(cmdAppMeasCurrent, ch)
}

// MeasureChannelPower returns the measured power of channel ch.
func (ins *Instrument) MeasureChannelPower(ch int) (float64, error) {
	return ins.channelFloat(cmdAppMeasPower, ch)
}

// ChannelStatus takes a snapshot of channel ch. Any failure aborts the call.
func (ins *Instrument) ChannelStatus(ch int) (*ChannelSnapshot, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}

	snap := ChannelSnapshot{Channel: ch}

	var err error
	if snap.Voltage, err = ins.MeasureChannelVoltage(ch); err != nil {
		return nil, err
	}
	if snap.Current, err = ins.MeasureChannelCurrent(ch); err != nil {
		return nil, err
	}
	if snap.Power, err = ins.MeasureChannelPower(ch); err != nil {
		return nil, err
	}
	if snap.OutputEnabled, err = ins.ChannelOutput(ch); err != nil {
		return nil, err
	}
	if snap.SetVoltage, err = ins.ChannelVoltage(ch); err != nil {
		return nil, err
	}
	if snap.SetCurrent, err = ins.ChannelCurrent(ch); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (ins *Instrument) channelFloat(format string, ch int) (float64, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}

	return ins.queryFloat(fmt.Sprintf(format, ch))
}
