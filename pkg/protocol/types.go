package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Status is the decoded generator run state
type Status int

const (
	StatusUnknown Status = iota
	StatusStopped
	StatusRunning
	StatusEmergencyStopped
	StatusParseError
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "STOPPED"
	case StatusRunning:
		return "RUNNING"
	case StatusEmergencyStopped:
		return "EMERGENCY_STOP"
	case StatusParseError:
		return "PARSE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Mode is the generator operating mode
type Mode int

const (
	ModeManual Mode = iota
	ModeAuto
)

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeAuto {
		return "AUTO"
	}
	return "MANUAL"
}

// GeneratorState is an immutable snapshot of the last decoded telemetry.
// Telemetry fields keep their last good value across failed polls; only
// Connected and LastUpdate track the health of the link itself.
type GeneratorState struct {
	Status         Status    `json:"status"`
	VoltageL1      float64   `json:"voltage_l1"`
	VoltageL2      float64   `json:"voltage_l2"`
	VoltageL3      float64   `json:"voltage_l3"`
	CurrentL1      float64   `json:"current_l1"`
	CurrentL2      float64   `json:"current_l2"`
	CurrentL3      float64   `json:"current_l3"`
	PowerKW        float64   `json:"power_kw"`
	FrequencyHz    float64   `json:"frequency_hz"`
	EngineTempC    float64   `json:"engine_temp_c"`
	OilPressureBar float64   `json:"oil_pressure_bar"`
	FuelLevelPct   float64   `json:"fuel_level_pct"`
	RuntimeMinutes int       `json:"runtime_minutes"`
	Mode           Mode      `json:"mode"`
	Alarms         []string  `json:"alarms"`
	Connected      bool      `json:"connected"`
	LastUpdate     time.Time `json:"last_update"`
}

// Runtime returns the accumulated engine runtime as a duration
func (s GeneratorState) Runtime() time.Duration {
	return time.Duration(s.RuntimeMinutes) * time.Minute
}

// Clone returns a deep copy, safe to hand to another goroutine
func (s GeneratorState) Clone() GeneratorState {
	out := s
	if s.Alarms != nil {
		out.Alarms = make([]string, len(s.Alarms))
		copy(out.Alarms, s.Alarms)
	}
	return out
}

// CommandKind identifies an operator control command
type CommandKind int

const (
	CommandStart CommandKind = iota
	CommandStop
	CommandEmergencyStop
	CommandAlarmReset
)

// Token returns the literal wire token for the command
func (k CommandKind) Token() string {
	switch k {
	case CommandStart:
		return "START"
	case CommandStop:
		return "STOP"
	case CommandEmergencyStop:
		return "EMERGENCY_STOP"
	case CommandAlarmReset:
		return "ALARM_RESET"
	default:
		return "UNKNOWN"
	}
}

// String returns the string representation of the command kind
func (k CommandKind) String() string {
	return strings.ToLower(k.Token())
}

// ParseCommandKind maps an external command name to its kind.
// Accepts both the wire token and the lowercase form.
func ParseCommandKind(s string) (CommandKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "START":
		return CommandStart, nil
	case "STOP":
		return CommandStop, nil
	case "EMERGENCY_STOP", "EMERGENCY-STOP":
		return CommandEmergencyStop, nil
	case "ALARM_RESET", "ALARM-RESET":
		return CommandAlarmReset, nil
	default:
		return 0, fmt.Errorf("unknown command %q", s)
	}
}

// CommandRequest is one operator control request.
// Confirm carries the human confirmation prompt for the caller's UI; the
// core never blocks on it.
type CommandRequest struct {
	Kind    CommandKind
	Timeout time.Duration
	Confirm string
}

// CommandResult is the definitive outcome of one dispatched command.
// Commands are never retried automatically: re-sending START after an
// ambiguous timeout could double-apply.
type CommandResult struct {
	OK       bool   `json:"ok"`
	Response string `json:"response,omitempty"` // Raw device response, verbatim
	Reason   string `json:"reason,omitempty"`   // Failure reason when !OK
}
