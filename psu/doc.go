// Package psu provides a typed facade over an SCPI session with an OWON or
// KIPRIM bench power supply.
//
// Simple operations map one-to-one onto SCPI commands: setters format their
// argument with exactly three decimals and write the command, getters issue
// the paired query and parse the answer. Composite operations sequence several
// commands:
//
//   - ConfigureOutput sets voltage, then current, then optionally enables the
//     output. There is no rollback; the device state is the source of truth.
//   - SafeShutdown disables the output before setting the voltage to zero.
//   - MeasurementStatus takes a fresh snapshot of measured and set values and
//     fails as a whole if any query fails.
//   - DeviceInfo reports identity and output state, and collects the optional
//     fields (limits, remote mode, keylock, status byte, error queue) while
//     tolerating timeouts on them, since not every model implements them.
//
// Example:
//
//	sess, err := scpi.NewNetworkSession("192.168.1.100", scpi.DefaultNetworkPort)
//	if err != nil {
//		return err
//	}
//	if err := sess.Open(ctx); err != nil {
//		return err
//	}
//	defer sess.Close()
//
//	supply := psu.New(sess)
//	if err := supply.ConfigureOutput(12.0, 1.0, true); err != nil {
//		return err
//	}
//	status, err := supply.MeasurementStatus()
package psu
