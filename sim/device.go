package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Protocol constants shared with the client side.
const (
	DefaultIdentity = "OWON,SPE6103,2203150,FV:V1.8.0"
	ErrorSentinel   = "ERR"
	NoErrorResponse = `0,"No error"`

	DefaultVoltageLimit = 60.0
	DefaultCurrentLimit = 10.0
	DefaultLoadOhms     = 10.0

	// Channels is the number of addressable channels of the APP: command family.
	Channels = 3

	maxErrorQueue = 16
)

// Error queue entries pushed by the device.
const (
	ErrUndefinedHeader = `-113,"Undefined header"`
	ErrIllegalValue    = `-224,"Illegal parameter value"`
	ErrDataOutOfRange  = `-222,"Data out of range"`
	ErrQueueOverflow   = `-350,"Queue overflow"`
)

// State keys. Channel keys are suffixed with ":<n>".
const (
	keyVoltage      = "VOLT"
	keyCurrent      = "CURR"
	keyVoltageLimit = "VOLT:LIM"
	keyCurrentLimit = "CURR:LIM"
	keyOutput       = "OUTP"
	keyRemote       = "REM"
	keyKeylock      = "KEYL"
	keyStatusByte   = "STB"
	keyAppVoltage   = "APP:VOLT"
	keyAppCurrent   = "APP:CURR"
	keyAppOutput    = "APP:OUTP"
)

// Device is a simulated power supply. It is safe for concurrent use, so several
// connections and the test goroutine may touch it at once.
type Device struct {
	identity       string
	loadOhms       float64
	numericOutput  bool
	logger         logger.Logger
	initialErrors  []string
	initialReplies map[string]string

	state     *xsync.MapOf[string, string]
	timeouts  *xsync.MapOf[string, struct{}]
	errorsOn  *xsync.MapOf[string, struct{}]
	responses *xsync.MapOf[string, string]
	delays    *xsync.MapOf[string, time.Duration]

	mu         sync.Mutex
	errorQueue []string
	commands   []string
}

// Option configures a Device.
type Option func(*Device)

// WithIdentity sets the "*IDN?" response.
func WithIdentity(identity string) Option {
	return func(d *Device) { d.identity = identity }
}

// WithLoad sets the resistance of the simulated load in ohms.
func WithLoad(ohms float64) Option {
	return func(d *Device) {
		if ohms > 0 {
			d.loadOhms = ohms
		}
	}
}

// WithNumericOutputState makes "OUTPut?" answer "1"/"0" instead of "ON"/"OFF".
func WithNumericOutputState() Option {
	return func(d *Device) { d.numericOutput = true }
}

// WithTimeoutOn makes the device silently drop the responses to the given commands.
func WithTimeoutOn(commands ...string) Option {
	return func(d *Device) { d.SetTimeoutOn(commands...) }
}

// WithDelayOn makes the device answer the given queries only after delay.
func WithDelayOn(delay time.Duration, commands ...string) Option {
	return func(d *Device) { d.SetDelayOn(delay, commands...) }
}

// WithErrorOn makes the device answer the given queries with "ERR".
func WithErrorOn(commands ...string) Option {
	return func(d *Device) { d.SetErrorOn(commands...) }
}

// WithResponse makes the device answer query with a fixed response.
func WithResponse(query, response string) Option {
	return func(d *Device) { d.initialReplies[query] = response }
}

// WithErrorQueue preloads the error queue.
func WithErrorQueue(entries ...string) Option {
	return func(d *Device) { d.initialErrors = append(d.initialErrors, entries...) }
}

// WithLogger sets the device logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDevice creates a simulated device in its power-on state.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		identity:       DefaultIdentity,
		loadOhms:       DefaultLoadOhms,
		logger:         logger.GetLogger(),
		initialReplies: make(map[string]string),
		state:          xsync.NewMapOf[string, string](),
		timeouts:       xsync.NewMapOf[string, struct{}](),
		errorsOn:       xsync.NewMapOf[string, struct{}](),
		responses:      xsync.NewMapOf[string, string](),
		delays:         xsync.NewMapOf[string, time.Duration](),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With("component", "sim")
	d.resetState()

	for query, resp := range d.initialReplies {
		d.SetResponse(query, resp)
	}
	for _, e := range d.initialErrors {
		d.PushError(e)
	}

	return d
}

func (d *Device) resetState() {
	d.state.Clear()

	d.state.Store(keyVoltage, formatValue(0))
	d.state.Store(keyCurrent, formatValue(0))
	d.state.Store(keyVoltageLimit, formatValue(DefaultVoltageLimit))
	d.state.Store(keyCurrentLimit, formatValue(DefaultCurrentLimit))
	d.state.Store(keyOutput, "0")
	d.state.Store(keyRemote, "0")
	d.state.Store(keyKeylock, "0")
	d.state.Store(keyStatusByte, "0")

	for ch := 1; ch <= Channels; ch++ {
		d.state.Store(channelKey(keyAppVoltage, ch), formatValue(0))
		d.state.Store(channelKey(keyAppCurrent, ch), formatValue(0))
		d.state.Store(channelKey(keyAppOutput, ch), "0")
	}
}

// SetTimeoutOn makes the device drop the responses to the given commands.
func (d *Device) SetTimeoutOn(commands ...string) {
	for _, c := range commands {
		d.timeouts.Store(Canonical(c), struct{}{})
	}
}

// SetDelayOn makes the device answer the given queries only after delay.
// Commands sent meanwhile queue up behind the delayed answer.
func (d *Device) SetDelayOn(delay time.Duration, commands ...string) {
	for _, c := range commands {
		d.delays.Store(Canonical(c), delay)
	}
}

func (d *Device) delayFor(line string) time.Duration {
	delay, _ := d.delays.Load(Canonical(line))
	return delay
}

// SetErrorOn makes the device answer the given queries with "ERR".
func (d *Device) SetErrorOn(commands ...string) {
	for _, c := range commands {
		d.errorsOn.Store(Canonical(c), struct{}{})
	}
}

// SetResponse makes the device answer query with response.
func (d *Device) SetResponse(query, response string) {
	d.responses.Store(Canonical(query), response)
}

// ClearFaults removes every injected timeout, delay, error and canned response.
func (d *Device) ClearFaults() {
	d.timeouts.Clear()
	d.delays.Clear()
	d.errorsOn.Clear()
	d.responses.Clear()
}

// Value returns a state value by key, e.g. "VOLT", "OUTP" or "APP:VOLT:2".
func (d *Device) Value(key string) (string, bool) {
	return d.state.Load(key)
}

// Identity returns the identity string.
func (d *Device) Identity() string {
	return d.identity
}

// PushError appends an entry to the error queue.
func (d *Device) PushError(entry string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case len(d.errorQueue) < maxErrorQueue-1:
		d.errorQueue = append(d.errorQueue, entry)
	case len(d.errorQueue) == maxErrorQueue-1:
		d.errorQueue = append(d.errorQueue, ErrQueueOverflow)
	}
}

func (d *Device) popError() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.errorQueue) == 0 {
		return NoErrorResponse
	}

	entry := d.errorQueue[0]
	d.errorQueue = d.errorQueue[1:]

	return entry
}

func (d *Device) clearErrors() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.errorQueue = nil
}

// Commands returns every line received so far, in order.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.commands))
	copy(out, d.commands)

	return out
}

// ResetCommands clears the command log.
func (d *Device) ResetCommands() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.commands = nil
}

func (d *Device) record(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.commands = append(d.commands, line)
}

// Handle processes one command line and returns the response. reply is false
// when nothing must be sent back: for commands, and for queries whose response
// is dropped to simulate a timeout.
func (d *Device) Handle(line string) (response string, reply bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	d.record(line)

	key := Canonical(line)
	_, args := splitLine(line)
	query := strings.HasSuffix(key, "?")

	if _, ok := d.timeouts.Load(key); ok {
		d.logger.Debug("sim: dropping response", "command", line)
		return "", false
	}

	if _, ok := d.errorsOn.Load(key); ok {
		d.logger.Debug("sim: injected error", "command", line)
		return ErrorSentinel, query
	}

	if resp, ok := d.responses.Load(key); ok {
		return resp, query
	}

	if query {
		return d.query(key, args), true
	}

	d.command(key, args)

	return "", false
}

func (d *Device) query(key string, args string) string {
	switch key {
	case "*IDN?":
		return d.identity
	case "*OPC?":
		return "1"
	case "*STB?":
		return d.get(keyStatusByte)
	case "OUTP?":
		return d.outputState(d.get(keyOutput))
	case "VOLT?", "CURR?", "VOLT:LIM?", "CURR:LIM?":
		return d.get(strings.TrimSuffix(key, "?"))
	case "MEAS:VOLT?":
		v, _ := d.measure(d.getFloat(keyVoltage), d.getFloat(keyCurrent), d.get(keyOutput) == "1")
		return formatValue(v)
	case "MEAS:CURR?":
		_, i := d.measure(d.getFloat(keyVoltage), d.getFloat(keyCurrent), d.get(keyOutput) == "1")
		return formatValue(i)
	case "MEAS:POW?":
		v, i := d.measure(d.getFloat(keyVoltage), d.getFloat(keyCurrent), d.get(keyOutput) == "1")
		return formatValue(v * i)
	case "SYST:REM?":
		return d.get(keyRemote)
	case "SYST:KEYL?":
		return d.get(keyKeylock)
	case "SYST:ERR?":
		return d.popError()
	case "APP:VOLT?", "APP:CURR?", "APP:OUTP?", "APP:MEAS:VOLT?", "APP:MEAS:CURR?", "APP:MEAS:POW?":
		return d.channelQuery(key, args)
	}

	d.PushError(ErrUndefinedHeader)

	return ErrorSentinel
}

func (d *Device) channelQuery(key string, args string) string {
	ch, err := strconv.Atoi(args)
	if err != nil || ch < 1 || ch > Channels {
		d.PushError(ErrIllegalValue)
		return ErrorSentinel
	}

	setV := d.getFloat(channelKey(keyAppVoltage, ch))
	setI := d.getFloat(channelKey(keyAppCurrent, ch))
	on := d.get(channelKey(keyAppOutput, ch)) == "1"

	switch key {
	case "APP:VOLT?":
		return formatValue(setV)
	case "APP:CURR?":
		return formatValue(setI)
	case "APP:OUTP?":
		return d.outputState(d.get(channelKey(keyAppOutput, ch)))
	}

	v, i := d.measure(setV, setI, on)
	switch key {
	case "APP:MEAS:VOLT?":
		return formatValue(v)
	case "APP:MEAS:CURR?":
		return formatValue(i)
	default:
		return formatValue(v * i)
	}
}

func (d *Device) command(key string, args string) {
	switch key {
	case "*RST":
		d.resetState()
	case "*CLS":
		d.clearErrors()
		d.state.Store(keyStatusByte, "0")
	case "*WAI":
	case "OUTP":
		d.storeBool(keyOutput, args)
	case "VOLT":
		d.storeValue(keyVoltage, args, d.getFloat(keyVoltageLimit))
	case "CURR":
		d.storeValue(keyCurrent, args, d.getFloat(keyCurrentLimit))
	case "VOLT:LIM":
		d.storeValue(keyVoltageLimit, args, DefaultVoltageLimit)
	case "CURR:LIM":
		d.storeValue(keyCurrentLimit, args, DefaultCurrentLimit)
	case "SYST:REM":
		d.state.Store(keyRemote, "1")
	case "SYST:LOC":
		d.state.Store(keyRemote, "0")
	case "SYST:KEYL":
		d.storeBool(keyKeylock, args)
	case "APP:VOLT":
		d.storeChannelValues(keyAppVoltage, args, d.getFloat(keyVoltageLimit))
	case "APP:CURR":
		d.storeChannelValues(keyAppCurrent, args, d.getFloat(keyCurrentLimit))
	case "APP:OUTP":
		d.storeChannelOutput(args)
	default:
		d.PushError(ErrUndefinedHeader)
	}
}

func (d *Device) storeBool(key string, arg string) {
	v, ok := parseBool(arg)
	if !ok {
		d.PushError(ErrIllegalValue)
		return
	}
	d.state.Store(key, v)
}

func (d *Device) storeValue(key string, arg string, limit float64) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		d.PushError(ErrIllegalValue)
		return
	}
	if v < 0 || v > limit {
		d.PushError(ErrDataOutOfRange)
		return
	}
	d.state.Store(key, formatValue(v))
}

func (d *Device) storeChannelValues(prefix string, args string, limit float64) {
	values := strings.Split(args, ",")
	if len(values) != Channels {
		d.PushError(ErrIllegalValue)
		return
	}

	for i, raw := range values {
		d.storeValue(channelKey(prefix, i+1), strings.TrimSpace(raw), limit)
	}
}

func (d *Device) storeChannelOutput(args string) {
	state, chArg, ok := strings.Cut(args, ",")
	ch, err := strconv.Atoi(strings.TrimSpace(chArg))
	if !ok || err != nil || ch < 1 || ch > Channels {
		d.PushError(ErrIllegalValue)
		return
	}

	d.storeBool(channelKey(keyAppOutput, ch), strings.TrimSpace(state))
}

// measure models a constant-voltage / constant-current supply driving a resistive load.
func (d *Device) measure(setV, setI float64, on bool) (float64, float64) {
	if !on {
		return 0, 0
	}

	i := setV / d.loadOhms
	if i <= setI {
		return setV, i
	}

	return setI * d.loadOhms, setI
}

func (d *Device) outputState(v string) string {
	if d.numericOutput {
		return v
	}
	if v == "1" {
		return "ON"
	}

	return "OFF"
}

func (d *Device) get(key string) string {
	v, _ := d.state.Load(key)
	return v
}

func (d *Device) getFloat(key string) float64 {
	v, err := strconv.ParseFloat(d.get(key), 64)
	if err != nil {
		return math.NaN()
	}

	return v
}

func parseBool(arg string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(arg)) {
	case "ON", "1":
		return "1", true
	case "OFF", "0":
		return "0", true
	}

	return "", false
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func channelKey(prefix string, ch int) string {
	return fmt.Sprintf("%s:%d", prefix, ch)
}
