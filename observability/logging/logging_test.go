package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("mirrorevm", "test", WithWriter(&buf), WithLevel(slog.LevelDebug))
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	logger.Debug("call executed", "gas", 21000)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]any{
		"message":  "call executed",
		"severity": "DEBUG",
		"service":  "mirrorevm",
		"env":      "test",
		"gas":      float64(21000),
	} {
		if line[key] != want {
			t.Fatalf("%s = %v, want %v", key, line[key], want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp missing from %v", line)
	}
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("mirrorevm", "", WithWriter(&buf), WithLevel(ParseLevel("warn")))
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %s", buf.String())
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unknown level should fall back to info")
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("supply_key", "0xabcdef").Value.String(); got != RedactedValue {
		t.Fatalf("supply_key = %q", got)
	}
	if got := MaskField("method", "eth_call").Value.String(); got != "eth_call" {
		t.Fatalf("method = %q", got)
	}
	if got := MaskField("anything", "").Value.String(); got != "" {
		t.Fatalf("empty value = %q", got)
	}
}

func TestMaskHexKeepsSelector(t *testing.T) {
	data := []byte{0x70, 0xa0, 0x82, 0x31, 0xde, 0xad, 0xbe, 0xef}
	got := MaskHex("data", data).Value.String()
	if !strings.HasPrefix(got, "0x70a08231") || strings.Contains(got, "deadbeef") {
		t.Fatalf("masked = %q", got)
	}
	if !strings.Contains(got, "(8 bytes)") {
		t.Fatalf("length missing from %q", got)
	}
	if got := MaskHex("transaction", data).Value.String(); got != "0x70a08231deadbeef" {
		t.Fatalf("allowlisted = %q", got)
	}
}
