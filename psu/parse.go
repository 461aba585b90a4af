package psu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidResponse indicates a response that could not be parsed into the expected type.
var ErrInvalidResponse = errors.New("psu: invalid response")

// ParseBool parses a boolean response. Both "1"/"0" and "ON"/"OFF" are
// accepted, as the device uses either depending on the command family.
func ParseBool(response string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(response)) {
	case "1", "ON":
		return true, nil
	case "0", "OFF":
		return false, nil
	}

	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidResponse, response)
}

// ParseFloat parses a numeric response such as "12.345".
func ParseFloat(response string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(response), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidResponse, response)
	}

	return v, nil
}

// ParseInt parses an integer response such as a status byte. Responses in
// floating point notation ("8.0") are accepted when integral.
func ParseInt(response string) (int, error) {
	s := strings.TrimSpace(response)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidResponse, response)
	}

	return int(f), nil
}

// FormatValue formats a voltage or current with the three decimals the command grammar expects.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
