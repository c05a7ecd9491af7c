package main

import (
	"strings"
	"testing"
)

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name        string
		trace       string
		preset      string
		verify      bool
		wantErr     string // substring of the expected error, empty for success
		wantContain []string
		wantJSON    bool
	}{
		{
			name: "alloc and free",
			trace: `# two blocks, freed in reverse order
a 0 512
a 1 128

f 1
f 0
`,
			wantContain: []string{"Total: 4", "Alloc: 2", "Free: 2", "Utilization"},
		},
		{
			name: "full op mix",
			trace: `a 0 100
c 1 8 16
r 0 300
r 0 0
f 1
`,
			verify:      true,
			wantContain: []string{"Total: 5", "Realloc: 2", "Calloc: 1"},
		},
		{
			name: "json output",
			trace: `a 0 64
f 0
`,
			wantJSON:    true,
			wantContain: []string{`"Allocs": 1`, `"Frees": 1`, `"PeakLiveBytes": 64`},
		},
		{
			name:    "free of unknown block fails",
			trace:   "f 3\n",
			wantErr: "block 3 not allocated",
		},
		{
			name:    "double alloc of one id fails",
			trace:   "a 0 32\na 0 32\n",
			wantErr: "block 0 already allocated",
		},
		{
			name:    "unknown opcode fails",
			trace:   "x 0 32\n",
			wantErr: `unknown operation "x"`,
		},
		{
			name:    "malformed size fails",
			trace:   "a 0 lots\n",
			wantErr: `bad size "lots"`,
		},
		{
			name:    "unknown preset fails",
			trace:   "a 0 32\n",
			preset:  "turbo",
			wantErr: "unknown preset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags
			quiet = false
			verbose = false
			jsonOut = tt.wantJSON
			runPreset = "default"
			if tt.preset != "" {
				runPreset = tt.preset
			}
			runMaxHeap = 1 << 22
			runVerify = tt.verify

			path := writeTrace(t, tt.trace)
			output, err := captureOutput(t, func() error {
				return runTrace([]string{path})
			})

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("runTrace() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runTrace() error = %v", err)
			}

			if tt.wantJSON {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestRunCommand_ErrorsIncludeLineNumbers(t *testing.T) {
	quiet = true
	jsonOut = false
	runPreset = "default"
	runMaxHeap = 1 << 22
	runVerify = false

	path := writeTrace(t, "a 0 64\n\n# comment\nf 1\n")
	_, err := captureOutput(t, func() error {
		return runTrace([]string{path})
	})
	if err == nil || !strings.Contains(err.Error(), ":4:") {
		t.Errorf("expected error pointing at line 4, got %v", err)
	}
}

func TestRunCommand_OutOfMemoryReported(t *testing.T) {
	quiet = true
	jsonOut = false
	runPreset = "default"
	runMaxHeap = 8192
	runVerify = false

	path := writeTrace(t, "a 0 100000\n")
	_, err := captureOutput(t, func() error {
		return runTrace([]string{path})
	})
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("expected out-of-memory error, got %v", err)
	}
}
