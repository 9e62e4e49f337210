package engine

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/gtosh4/mindwand/session"
)

type DLPIO8G struct {
	port serial.Port
}

func NewDLPIO8G(device string, baudrate int) (*DLPIO8G, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}

	d := &DLPIO8G{port: port}

	if !d.Ping() {
		port.Close()
		return nil, fmt.Errorf("device did not respond to ping correctly")
	}

	// Binary mode
	if _, err := port.Write([]byte{0x5C}); err != nil {
		port.Close()
		return nil, err
	}

	return d, nil
}

func (d *DLPIO8G) Close() {
	if d.port != nil {
		d.port.Close()
	}
}

func (d *DLPIO8G) Ping() bool {
	if _, err := d.port.Write([]byte{0x27}); err != nil {
		return false
	}

	buf := make([]byte, 1)
	n, err := d.port.Read(buf)
	return err == nil && n == 1 && buf[0] == 'Q'
}

func (d *DLPIO8G) Set(lines string) {
	if _, err := d.port.Write([]byte(lines)); err != nil {
		fmt.Printf("write error in dlp Set: %v\n", err)
	}
}

// unsetCommand maps line digits to the device's clear commands.
func unsetCommand(lines string) []byte {
	cmd := []byte(lines)
	off := map[byte]byte{'1': 'Q', '2': 'W', '3': 'E', '4': 'R', '5': 'T', '6': 'Y', '7': 'U', '8': 'I'}
	for i := range cmd {
		if c, ok := off[cmd[i]]; ok {
			cmd[i] = c
		}
	}
	return cmd
}

func (d *DLPIO8G) Unset(lines string) {
	if _, err := d.port.Write(unsetCommand(lines)); err != nil {
		fmt.Printf("write error in dlp Unset: %v\n", err)
	}
}

func (d *DLPIO8G) Pulse(lines string, width time.Duration) {
	d.Set(lines)
	time.Sleep(width)
	d.Unset(lines)
}

// Trigger lines.
const (
	lineRecording  = "1"
	lineTrialStart = "2"
	lineTrialEnd   = "3"
)

type triggerDevice interface {
	Set(lines string)
	Unset(lines string)
	Pulse(lines string, width time.Duration)
}

// TriggerTracker marks the tracker lifecycle as TTL lines on a DLP-IO8-G so
// an external recorder (EEG, eye tracker host) can align its data. Line 1 is
// high while recording; lines 2 and 3 pulse at trial start and end.
type TriggerTracker struct {
	dev   triggerDevice
	width time.Duration
}

func NewTriggerTracker(dev *DLPIO8G) *TriggerTracker {
	return &TriggerTracker{dev: dev, width: 5 * time.Millisecond}
}

func (t *TriggerTracker) BeginTrial(string) error {
	t.dev.Pulse(lineTrialStart, t.width)
	return nil
}

func (t *TriggerTracker) MarkInterestArea(session.InterestArea) error { return nil }

func (t *TriggerTracker) StartRecording() error {
	t.dev.Set(lineRecording)
	return nil
}

func (t *TriggerTracker) StopRecording() error {
	t.dev.Unset(lineRecording)
	return nil
}

func (t *TriggerTracker) SendVar(string, string) error { return nil }

func (t *TriggerTracker) EndTrial() error {
	t.dev.Pulse(lineTrialEnd, t.width)
	return nil
}

func (t *TriggerTracker) EndSession() error {
	t.dev.Unset(lineRecording + lineTrialStart + lineTrialEnd)
	return nil
}
