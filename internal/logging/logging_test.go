package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "json", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.WithField("component", "test").Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want %q", entry["msg"], "hello")
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v, want %q", entry["component"], "test")
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "text", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("text output missing message: %q", buf.String())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", "json", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("loud", "json", nil); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Error("expected error for bad format")
	}
}
