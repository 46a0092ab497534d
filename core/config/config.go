// Package config resolves the node's command-line surface and ambient
// tunables into a validated configuration, surfacing every problem as a
// fatal Error rather than a panic or assertion.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Error is a configuration problem: a bad port, a wrong-size data file, a
// malformed positional argument. Always fatal at startup.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Errorf builds a configuration Error, for use by callers outside this
// package that detect a configuration problem (e.g. lifecycle validating a
// data file's size).
func Errorf(format string, args ...any) *Error {
	return errorf(format, args...)
}

const maxPort = 0xFFFF

// Args is the node's positional command-line contract:
// <directoryHost> <directoryPort> <nodePort> [dataFile].
type Args struct {
	DirectoryHost string
	DirectoryPort int
	NodePort      int
	DataFile      string // empty means "bootstrap from peers"
}

// ParseArgs validates the positional arguments. nodePort == 0 means
// "assign any free port"; directoryPort must be strictly positive.
func ParseArgs(positional []string) (*Args, error) {
	if len(positional) < 3 {
		return nil, errorf("usage: <directoryHost> <directoryPort> <nodePort> [dataFile]")
	}

	directoryPort, err := strconv.Atoi(positional[1])
	if err != nil {
		return nil, errorf("directory port must be an integer: %v", err)
	}
	nodePort, err := strconv.Atoi(positional[2])
	if err != nil {
		return nil, errorf("node port must be an integer: %v", err)
	}

	if directoryPort <= 0 || directoryPort > maxPort {
		return nil, errorf("directory port must be in (0, %d]", maxPort)
	}
	if nodePort < 0 || nodePort > maxPort {
		return nil, errorf("node port must be in [0, %d]", maxPort)
	}

	args := &Args{
		DirectoryHost: positional[0],
		DirectoryPort: directoryPort,
		NodePort:      nodePort,
	}
	if len(positional) > 3 && positional[3] != "" {
		args.DataFile = positional[3]
	}

	return args, nil
}

// Tunables are ambient parameters not part of the peer wire contract, bound
// from the environment with a PARITY_ prefix so operators can adjust
// correction cadence and dial patience without recompiling.
type Tunables struct {
	ScannerCount            int           `envconfig:"SCANNER_COUNT" default:"2"`
	CorrectionRetryInterval time.Duration `envconfig:"CORRECTION_RETRY_INTERVAL" default:"1s"`
	CorrectionPassInterval  time.Duration `envconfig:"CORRECTION_PASS_INTERVAL" default:"1s"`
	DialTimeout             time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
}

// LoadTunables reads ambient tunables from the environment, applying
// defaults for anything unset.
func LoadTunables() (*Tunables, error) {
	var t Tunables
	if err := envconfig.Process("PARITY", &t); err != nil {
		return nil, errorf("invalid ambient configuration: %v", err)
	}
	if t.ScannerCount < 1 {
		return nil, errorf("PARITY_SCANNER_COUNT must be at least 1, got %d", t.ScannerCount)
	}
	return &t, nil
}
