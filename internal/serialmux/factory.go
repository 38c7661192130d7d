package serialmux

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

var _ TimeoutSerialPorter = serial.Port(nil)

// ErrNoReadTimeout is returned for ports that cannot bound a blocking read.
var ErrNoReadTimeout = errors.New("port does not support read timeouts")

// RealSerialPortFactory opens hardware ports through go.bug.st/serial.
type RealSerialPortFactory struct{}

// NewRealSerialPortFactory returns the production port factory.
func NewRealSerialPortFactory() *RealSerialPortFactory {
	return &RealSerialPortFactory{}
}

// Open opens path with the given options and applies the read timeout so a
// silent controller cannot wedge the reader forever.
func (RealSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := setReadTimeout(port, opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}
	return port, nil
}

func setReadTimeout(port SerialPorter, timeout time.Duration) error {
	tp, ok := port.(TimeoutSerialPorter)
	if !ok {
		return ErrNoReadTimeout
	}
	return tp.SetReadTimeout(timeout)
}

// ListPorts returns the serial device names present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
