package protocol

import (
	"strconv"
	"strings"
)

// Wire framing: line-oriented ASCII, CRLF terminated, no checksum. The
// bridge forwards the serial side verbatim, so reads are best-effort text
// and the decoder has to be total over arbitrary byte sequences.
const (
	crlf        = "\r\n"
	statusQuery = "STATUS?"
)

// EncodeCommand maps a command kind to its literal token with CRLF framing
func EncodeCommand(kind CommandKind) []byte {
	return []byte(kind.Token() + crlf)
}

// EncodeStatusQuery returns the fixed status request
func EncodeStatusQuery() []byte {
	return []byte(statusQuery + crlf)
}

// DecodeStatus decodes a raw status response into a GeneratorState. It never
// fails: anything unrecognizable yields StatusParseError with Connected=false.
// A successful decode requires at least a status token; numeric fields
// default to zero when absent, since the bridge may forward partial
// telemetry. LastUpdate is left zero and stamped by the poller.
func DecodeStatus(raw []byte) GeneratorState {
	text, ok := asText(raw)
	if !ok {
		return parseErrorState()
	}

	st := GeneratorState{Status: StatusUnknown}
	for _, field := range strings.FieldsFunc(strings.ToUpper(text), isSeparator) {
		if key, value, found := strings.Cut(field, "="); found {
			applyField(&st, key, value)
			continue
		}
		applyStatusToken(&st, field)
	}

	if st.Status == StatusUnknown {
		return parseErrorState()
	}
	st.Connected = true
	return st
}

// DecodeCommandResponse classifies a raw command response. The device's
// acknowledgement grammar is not guaranteed, so any non-empty text payload
// counts as tentative acceptance unless it leads with an explicit rejection
// token. The raw text is always surfaced to the caller.
func DecodeCommandResponse(raw []byte) (bool, string) {
	text, ok := asText(raw)
	if !ok {
		// Non-text response: surface a hex-safe rendition, classify as success
		// since the round-trip completed with a non-empty payload
		return len(raw) > 0, strconv.Quote(string(raw))
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, trimmed
	}

	fields := strings.FieldsFunc(strings.ToUpper(trimmed), isSeparator)
	if len(fields) == 0 {
		return false, trimmed
	}
	switch fields[0] {
	case "ERR", "ERROR", "NAK", "REJECTED", "FAIL":
		return false, trimmed
	}
	return true, trimmed
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == ';'
}

// asText accepts the payload only if it is plausible line text. Control
// bytes other than CR/LF/TAB mean we desynchronized or the serial side is
// misconfigured; the caller re-synchronizes at the next query.
func asText(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	for _, b := range raw {
		if b >= 0x20 && b < 0x7f {
			continue
		}
		if b == '\r' || b == '\n' || b == '\t' {
			continue
		}
		return "", false
	}
	return string(raw), true
}

func applyStatusToken(st *GeneratorState, token string) {
	switch token {
	case "EMERGENCY_STOP", "EMERGENCY", "ESTOP":
		st.Status = StatusEmergencyStopped
	case "ON", "RUN", "RUNNING":
		if st.Status == StatusUnknown {
			st.Status = StatusRunning
		}
	case "OFF", "STOPPED":
		if st.Status == StatusUnknown {
			st.Status = StatusStopped
		}
	}
}

func applyField(st *GeneratorState, key, value string) {
	switch key {
	case "STATUS":
		applyStatusToken(st, value)
	case "V1", "VOLTAGE_L1":
		st.VoltageL1 = parseFloat(value)
	case "V2", "VOLTAGE_L2":
		st.VoltageL2 = parseFloat(value)
	case "V3", "VOLTAGE_L3":
		st.VoltageL3 = parseFloat(value)
	case "A1", "CURRENT_L1":
		st.CurrentL1 = parseFloat(value)
	case "A2", "CURRENT_L2":
		st.CurrentL2 = parseFloat(value)
	case "A3", "CURRENT_L3":
		st.CurrentL3 = parseFloat(value)
	case "KW", "POWER":
		st.PowerKW = parseFloat(value)
	case "HZ", "FREQ", "FREQUENCY":
		st.FrequencyHz = parseFloat(value)
	case "TEMP", "ENGINE_TEMP":
		st.EngineTempC = parseFloat(value)
	case "OIL", "OIL_PRESSURE":
		st.OilPressureBar = parseFloat(value)
	case "FUEL", "FUEL_LEVEL":
		st.FuelLevelPct = parseFloat(value)
	case "RUNTIME":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			st.RuntimeMinutes = n
		}
	case "MODE":
		if value == "AUTO" {
			st.Mode = ModeAuto
		} else {
			st.Mode = ModeManual
		}
	case "ALARMS":
		for _, code := range strings.Split(value, ",") {
			if code = strings.TrimSpace(code); code != "" {
				st.Alarms = append(st.Alarms, code)
			}
		}
	}
}

// parseFloat is deliberately forgiving: malformed numbers decode to zero
// rather than failing the whole telegram
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseErrorState() GeneratorState {
	return GeneratorState{Status: StatusParseError, Connected: false}
}
