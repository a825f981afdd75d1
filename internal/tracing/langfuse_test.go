package tracing

import (
	"testing"

	"github.com/54b3r/moviechat-go/internal/config"
)

func TestSetup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    config.TracingConfig
		wantOK bool
	}{
		{"no keys", config.TracingConfig{}, false},
		{"public key only", config.TracingConfig{PublicKey: "pk"}, false},
		{"secret key only", config.TracingConfig{SecretKey: "sk"}, false},
		{"both keys", config.TracingConfig{PublicKey: "pk", SecretKey: "sk"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler, flush, ok := Setup(tt.cfg)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if !ok && (handler != nil || flush != nil) {
				t.Error("disabled tracing must return nil handler and flush")
			}
			if ok && (handler == nil || flush == nil) {
				t.Error("enabled tracing must return handler and flush")
			}
		})
	}
}

func TestInstall_Disabled(t *testing.T) {
	t.Parallel()
	flush := Install(config.TracingConfig{})
	if flush == nil {
		t.Fatal("Install must always return a callable flush")
	}
	flush()
}
