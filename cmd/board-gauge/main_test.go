package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRun_ExitCodes(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "missing.env")

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want int
	}{
		{"version", []string{"--version"}, nil, 0},
		{"help", []string{"--help"}, nil, 0},
		{
			"bad setting",
			[]string{"--env", noEnv, "--frames", t.TempDir()},
			map[string]string{"BOARD_GAUGE_CANNY_LOW": "low"},
			2,
		},
		{
			"missing frame directory",
			[]string{"--env", noEnv, "--frames", filepath.Join(t.TempDir(), "nope")},
			nil,
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			saved := os.Args
			os.Args = append([]string{"board-gauge"}, tt.args...)
			defer func() { os.Args = saved }()

			if got := run(); got != tt.want {
				t.Errorf("run() = %d, want %d", got, tt.want)
			}
		})
	}
}
