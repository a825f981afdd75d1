package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

type echoIn struct {
	Text string `json:"text"`
}

type echoOut struct {
	Echo string `json:"echo"`
}

func newEchoTool(name string) *TypedTool[echoIn, echoOut] {
	info := &schema.ToolInfo{
		Name: name,
		Desc: "echoes its input",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"text": {Type: schema.String, Required: true},
		}),
	}
	return NewTyped(info, func(_ context.Context, in echoIn) (echoOut, error) {
		if in.Text == "fail" {
			return echoOut{}, errors.New("asked to fail")
		}
		return echoOut{Echo: in.Text}, nil
	})
}

func TestRegistry_RegisterAndInvoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(newEchoTool(name)); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	if got := strings.Join(r.Names(), ","); got != "zeta,alpha,mid" {
		t.Errorf("Names: got %s, want registration order", got)
	}
	if n := len(r.Tools()); n != 3 {
		t.Errorf("Tools: got %d, want 3", n)
	}

	out, err := r.Invoke(ctx, "alpha", `{"text":"hi"}`)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != `{"echo":"hi"}` {
		t.Errorf("Invoke output: got %s", out)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(newEchoTool("dup")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(newEchoTool("dup")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := r.Register(newEchoTool("")); err == nil {
		t.Error("expected empty name to fail")
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Invoke(context.Background(), "lights_on", "{}")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestTypedTool_InvokableRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    string
		want    string
		wantErr string
	}{
		{"valid", `{"text":"x"}`, `{"echo":"x"}`, ""},
		{"empty args", "", `{"echo":""}`, ""},
		{"whitespace args", "  ", `{"echo":""}`, ""},
		{"malformed", `{"text":`, "", "echo: invalid input"},
		{"handler error", `{"text":"fail"}`, "", "asked to fail"},
	}

	tt0 := newEchoTool("echo")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt0.InvokableRun(context.Background(), tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error: got %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("output: got %s, want %s", got, tt.want)
			}
		})
	}
}
