package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupEmitsCanonicalKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, Options{Service: "gridledgerd", Env: "test", Level: "debug"})
	logger.Debug("transition applied", slog.String("op", "token.mint"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env", "op"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing key %q in %v", key, line)
		}
	}
	if line["severity"] != "DEBUG" {
		t.Fatalf("unexpected severity %v", line["severity"])
	}
}

func TestSetupRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, Options{Service: "gridledgerd", Level: "warn"})
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line should be filtered at warn level")
	}
}

func TestMaskField(t *testing.T) {
	if attr := MaskField("token", "secret"); attr.Value.String() != RedactedValue {
		t.Fatalf("token must be redacted")
	}
	if attr := MaskField("op", "token.mint"); attr.Value.String() != "token.mint" {
		t.Fatalf("op is not sensitive")
	}
	if attr := MaskField("proof", ""); attr.Value.String() != "" {
		t.Fatalf("empty values pass through")
	}
}

func TestMaskPayload(t *testing.T) {
	raw := []byte(`{"paymentId":"ab12","proof":"receipt-991","nested":{"externalRef":"wire-7"},"reason":""}`)
	var got map[string]any
	if err := json.Unmarshal([]byte(MaskPayload(raw)), &got); err != nil {
		t.Fatalf("masked payload is not json: %v", err)
	}
	if got["proof"] != RedactedValue {
		t.Fatalf("proof leaked: %v", got["proof"])
	}
	if got["paymentId"] != "ab12" {
		t.Fatalf("paymentId should pass through: %v", got["paymentId"])
	}
	nested, ok := got["nested"].(map[string]any)
	if !ok || nested["externalRef"] != RedactedValue {
		t.Fatalf("nested reference leaked: %v", got["nested"])
	}
	if MaskPayload(nil) != "" {
		t.Fatalf("empty payload should render empty")
	}
	if out := MaskPayload([]byte("proof=abc")); out != "<9 bytes, not json>" {
		t.Fatalf("non-json payload rendered as %q", out)
	}
}

func TestRejectionLogOmitsProof(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, Options{Service: "gridledgerd", Level: "info"})
	logger.Info("transition rejected", PayloadAttr([]byte(`{"proof":"receipt-991"}`)))
	if bytes.Contains(buf.Bytes(), []byte("receipt-991")) {
		t.Fatalf("proof written to log: %s", buf.String())
	}
}
