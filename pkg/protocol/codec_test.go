package protocol

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

// TestEncodeCommandFraming tests that every command encodes to its token
// with CRLF framing
func TestEncodeCommandFraming(t *testing.T) {
	cases := []struct {
		kind CommandKind
		want string
	}{
		{CommandStart, "START\r\n"},
		{CommandStop, "STOP\r\n"},
		{CommandEmergencyStop, "EMERGENCY_STOP\r\n"},
		{CommandAlarmReset, "ALARM_RESET\r\n"},
	}

	for _, tc := range cases {
		got := EncodeCommand(tc.kind)
		if string(got) != tc.want {
			t.Errorf("EncodeCommand(%s) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

// TestEncodeStatusQuery tests the fixed status request bytes
func TestEncodeStatusQuery(t *testing.T) {
	got := EncodeStatusQuery()
	if string(got) != "STATUS?\r\n" {
		t.Errorf("EncodeStatusQuery() = %q, want %q", got, "STATUS?\r\n")
	}
}

// TestDecodeStatusTokens tests the bare status token forms
func TestDecodeStatusTokens(t *testing.T) {
	cases := []struct {
		payload string
		want    Status
	}{
		{"STATUS ON\r\n", StatusRunning},
		{"STATUS OFF\r\n", StatusStopped},
		{"ON\r\n", StatusRunning},
		{"RUNNING\r\n", StatusRunning},
		{"STOPPED\r\n", StatusStopped},
		{"EMERGENCY_STOP\r\n", StatusEmergencyStopped},
		{"STATUS=RUNNING\r\n", StatusRunning},
		{"status=running\r\n", StatusRunning}, // case-insensitive
	}

	for _, tc := range cases {
		st := DecodeStatus([]byte(tc.payload))
		if st.Status != tc.want {
			t.Errorf("DecodeStatus(%q).Status = %s, want %s", tc.payload, st.Status, tc.want)
		}
		if !st.Connected {
			t.Errorf("DecodeStatus(%q).Connected = false, want true", tc.payload)
		}
	}
}

// TestDecodeStatusFields tests the KEY=VALUE telemetry fields
func TestDecodeStatusFields(t *testing.T) {
	payload := "STATUS=RUNNING V1=231.2 V2=229.8 V3=230.5 A1=12.1 A2=11.9 A3=12.4 " +
		"KW=8.2 HZ=50.01 TEMP=84.5 OIL=4.2 FUEL=76 RUNTIME=12345 MODE=AUTO ALARMS=LOW_OIL,HI_TEMP\r\n"

	st := DecodeStatus([]byte(payload))

	if st.Status != StatusRunning {
		t.Errorf("Expected StatusRunning, got %s", st.Status)
	}
	if st.VoltageL1 != 231.2 || st.VoltageL2 != 229.8 || st.VoltageL3 != 230.5 {
		t.Errorf("Unexpected voltages: %.1f %.1f %.1f", st.VoltageL1, st.VoltageL2, st.VoltageL3)
	}
	if st.CurrentL2 != 11.9 {
		t.Errorf("Expected CurrentL2 11.9, got %.1f", st.CurrentL2)
	}
	if st.PowerKW != 8.2 {
		t.Errorf("Expected PowerKW 8.2, got %.1f", st.PowerKW)
	}
	if st.FrequencyHz != 50.01 {
		t.Errorf("Expected FrequencyHz 50.01, got %.2f", st.FrequencyHz)
	}
	if st.FuelLevelPct != 76 {
		t.Errorf("Expected FuelLevelPct 76, got %.0f", st.FuelLevelPct)
	}
	if st.RuntimeMinutes != 12345 {
		t.Errorf("Expected RuntimeMinutes 12345, got %d", st.RuntimeMinutes)
	}
	if st.Mode != ModeAuto {
		t.Errorf("Expected ModeAuto, got %s", st.Mode)
	}
	if len(st.Alarms) != 2 || st.Alarms[0] != "LOW_OIL" || st.Alarms[1] != "HI_TEMP" {
		t.Errorf("Unexpected alarms: %v", st.Alarms)
	}
}

// TestDecodeStatusPartialTelemetry tests that absent fields default to zero
// without failing the decode
func TestDecodeStatusPartialTelemetry(t *testing.T) {
	st := DecodeStatus([]byte("STATUS=ON FUEL=42\r\n"))

	if st.Status != StatusRunning {
		t.Fatalf("Expected StatusRunning, got %s", st.Status)
	}
	if st.FuelLevelPct != 42 {
		t.Errorf("Expected FuelLevelPct 42, got %.0f", st.FuelLevelPct)
	}
	if st.PowerKW != 0 || st.VoltageL1 != 0 {
		t.Errorf("Expected absent fields to be zero, got kw=%.1f v1=%.1f", st.PowerKW, st.VoltageL1)
	}
}

// TestDecodeStatusGarbage tests that unrecognizable payloads decode to
// ParseError with Connected=false instead of failing
func TestDecodeStatusGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("\x00\x01\x02\x03"),
		[]byte("HELLO WORLD\r\n"), // text but no status token
		[]byte("V1=231.2\r\n"),    // telemetry without status
		bytes.Repeat([]byte{0xff}, 64),
	}

	for _, payload := range cases {
		st := DecodeStatus(payload)
		if st.Status != StatusParseError {
			t.Errorf("DecodeStatus(%q).Status = %s, want StatusParseError", payload, st.Status)
		}
		if st.Connected {
			t.Errorf("DecodeStatus(%q).Connected = true, want false", payload)
		}
	}
}

// TestDecodeStatusNeverPanics feeds random byte sequences through the
// decoder; any panic fails the test
func TestDecodeStatusNeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		payload := make([]byte, rng.Intn(128))
		rng.Read(payload)
		st := DecodeStatus(payload)
		if st.Status == StatusUnknown {
			t.Errorf("DecodeStatus(%q) returned StatusUnknown, decoder must be total", payload)
		}
	}
}

// TestDecodeStatusMalformedNumbers tests that malformed numeric fields
// decode to zero without dropping the telegram
func TestDecodeStatusMalformedNumbers(t *testing.T) {
	st := DecodeStatus([]byte("STATUS=ON KW=abc HZ=50.0 RUNTIME=-5\r\n"))

	if st.Status != StatusRunning {
		t.Fatalf("Expected StatusRunning, got %s", st.Status)
	}
	if st.PowerKW != 0 {
		t.Errorf("Expected malformed KW to decode to 0, got %.1f", st.PowerKW)
	}
	if st.FrequencyHz != 50.0 {
		t.Errorf("Expected FrequencyHz 50.0, got %.1f", st.FrequencyHz)
	}
	if st.RuntimeMinutes != 0 {
		t.Errorf("Expected negative RUNTIME to be ignored, got %d", st.RuntimeMinutes)
	}
}

// TestDecodeCommandResponse tests acceptance and rejection classification
func TestDecodeCommandResponse(t *testing.T) {
	cases := []struct {
		payload string
		wantOK  bool
	}{
		{"OK\r\n", true},
		{"ok\r\n", true},
		{"STARTED\r\n", true},
		{"ERR 05\r\n", false},
		{"ERROR\r\n", false},
		{"NAK\r\n", false},
		{"REJECTED: engine lockout\r\n", false},
		{"FAIL\r\n", false},
		{"", false},
		{"\r\n", false},
		{";;;", false},
	}

	for _, tc := range cases {
		ok, _ := DecodeCommandResponse([]byte(tc.payload))
		if ok != tc.wantOK {
			t.Errorf("DecodeCommandResponse(%q) = %v, want %v", tc.payload, ok, tc.wantOK)
		}
	}
}

// TestDecodeCommandResponseVerbatim tests that the raw text reaches the
// caller trimmed but otherwise untouched
func TestDecodeCommandResponseVerbatim(t *testing.T) {
	ok, detail := DecodeCommandResponse([]byte("REJECTED: engine lockout active\r\n"))
	if ok {
		t.Error("Expected rejection")
	}
	if detail != "REJECTED: engine lockout active" {
		t.Errorf("Expected verbatim response text, got %q", detail)
	}
}

// TestDecodeCommandResponseBinary tests the non-text path
func TestDecodeCommandResponseBinary(t *testing.T) {
	ok, detail := DecodeCommandResponse([]byte{0x01, 0x02})
	if !ok {
		t.Error("Expected non-empty binary response to classify as tentative success")
	}
	if !strings.HasPrefix(detail, "\"") {
		t.Errorf("Expected quoted rendition of binary payload, got %q", detail)
	}
}

// TestParseCommandKind tests the string form accepted by the HTTP surface
func TestParseCommandKind(t *testing.T) {
	for _, s := range []string{"START", "start", " Stop ", "EMERGENCY_STOP", "ALARM_RESET"} {
		if _, err := ParseCommandKind(s); err != nil {
			t.Errorf("ParseCommandKind(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseCommandKind("SELF_DESTRUCT"); err == nil {
		t.Error("Expected error for unknown command")
	}
}
