package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "")
	if got := GetEnvString("TEST_STRING", "localhost:6379"); got != "localhost:6379" {
		t.Errorf("GetEnvString() = %q, want default", got)
	}

	t.Setenv("TEST_STRING", " secret ")
	if got := GetEnvString("TEST_STRING", ""); got != " secret " {
		t.Errorf("GetEnvString() = %q, want value kept verbatim", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset uses default", "", 7},
		{"valid", "42", 42},
		{"surrounding spaces", " 42 ", 42},
		{"trailing garbage uses default", "42abc", 7},
		{"invalid uses default", "many", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			if got := GetEnvInt("TEST_INT", 7); got != tt.want {
				t.Errorf("GetEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"unset uses default", "", 0.6},
		{"valid", "0.25", 0.25},
		{"surrounding spaces", " 0.5 ", 0.5},
		{"invalid uses default", "half", 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FLOAT", tt.value)
			if got := GetEnvFloat("TEST_FLOAT", 0.6); got != tt.want {
				t.Errorf("GetEnvFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"false", false},
		{"0", false},
		{"TRUE", true},
		{" f ", false},
		{"nope", true},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if got := GetEnvBool("TEST_BOOL", true); got != tt.want {
			t.Errorf("GetEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "1m30s")
	if got := GetEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("GetEnvDuration() = %v, want 1m30s", got)
	}

	t.Setenv("TEST_DURATION", "soon")
	if got := GetEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("GetEnvDuration() = %v, want default 1s", got)
	}
}

func TestGetEnvStringList(t *testing.T) {
	t.Setenv("TEST_LIST", " 10.0.0.0/8, ,192.168.0.0/16 ")
	got := GetEnvStringList("TEST_LIST", nil)
	if diff := cmp.Diff([]string{"10.0.0.0/8", "192.168.0.0/16"}, got); diff != "" {
		t.Errorf("GetEnvStringList() mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("TEST_LIST", " , ")
	if got := GetEnvStringList("TEST_LIST", []string{"x"}); !cmp.Equal(got, []string{"x"}) {
		t.Errorf("GetEnvStringList() = %v, want default", got)
	}
}

func TestValidateDurationRange(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		min, max time.Duration
		wantErr  bool
	}{
		{"inside", time.Second, 0, time.Minute, false},
		{"at min", 0, 0, time.Minute, false},
		{"below", -time.Second, 0, time.Minute, true},
		{"above", time.Hour, 0, time.Minute, true},
		{"inverted range", time.Second, time.Minute, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDurationRange(tt.d, tt.min, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDurationRange() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
