// Package monitor serializes access to a power supply from many goroutines.
//
// A psu.Instrument is not goroutine-safe. A Worker runs a single owning
// goroutine that executes submitted requests one at a time in submission
// order, and optionally polls the measurement status between requests.
//
//	w := monitor.New(ins,
//		monitor.WithPollInterval(time.Second),
//		monitor.WithMeasurementHandler(func(s *psu.MeasurementSnapshot) {
//			fmt.Printf("%.3f V %.3f A\n", s.Voltage, s.Current)
//		}),
//		monitor.WithShutdownOnStop(true),
//	)
//
//	go w.Run(ctx)
//
//	err := w.Do(ctx, func(ins *psu.Instrument) error {
//		return ins.SetVoltage(12)
//	})
package monitor
