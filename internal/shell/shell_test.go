package shell

import (
	"context"
	"strings"
	"testing"
)

func TestResult(t *testing.T) {
	tests := []struct {
		name        string
		res         Result
		wantSuccess bool
		wantOutput  string
		wantMessage string
	}{
		{"success", Result{Code: 0, Stdout: "ok\n"}, true, "ok\n", "ok"},
		{"failure with stderr", Result{Code: 1, Stdout: "partial", Stderr: "boom\n"}, false, "partialboom\n", "boom"},
		{"failure stdout only", Result{Code: 2, Stdout: "hook failed"}, false, "hook failed", "hook failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
			if got := tt.res.Output(); got != tt.wantOutput {
				t.Errorf("Output() = %q, want %q", got, tt.wantOutput)
			}
			if got := tt.res.Message(); got != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestExecRunner(t *testing.T) {
	r := NewExecRunner()
	ctx := context.Background()

	res := r.Run(ctx, t.TempDir(), "sh", "-c", "echo out; echo err >&2; exit 3")
	if res.Code != 3 {
		t.Errorf("Code = %d, want 3", res.Code)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("unexpected streams: stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}

	res = r.Run(ctx, "", "definitely-not-a-real-binary-t2p")
	if res.Code != NotFoundCode {
		t.Errorf("missing executable Code = %d, want %d", res.Code, NotFoundCode)
	}
	if res.Stderr == "" {
		t.Error("missing executable should report the start error")
	}
}

func TestCheck(t *testing.T) {
	if err := Check(Result{}, "git", "status"); err != nil {
		t.Errorf("Check on success = %v, want nil", err)
	}

	err := Check(Result{Code: 128, Stderr: "fatal: not a git repository\n"}, "git", "status")
	if err == nil {
		t.Fatal("Check on failure should return an error")
	}
	if err.Error() != "fatal: not a git repository" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = Check(Result{Code: 1}, "false")
	if !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("Error() without output = %q", err.Error())
	}
}
