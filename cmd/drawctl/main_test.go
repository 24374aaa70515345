package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"lotto-server/internal/service"
)

func TestExitFor(t *testing.T) {
	cases := []struct {
		name string
		in   service.TriggerResult
		want int
	}{
		{"settled", service.TriggerResult{Success: true}, exitOK},
		{"already processed", service.TriggerResult{Success: true, AlreadyProcessed: true}, exitOK},
		{"busy", service.TriggerResult{InProgress: true}, exitBusy},
		{"failed", service.TriggerResult{Error: "boom"}, exitFail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := exitFor(tc.in)
			got := exitOK
			var ee exitError
			if errors.As(err, &ee) {
				got = ee.code
			} else if err != nil {
				t.Fatalf("unexpected error type %T", err)
			}
			if got != tc.want {
				t.Fatalf("exit code = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"bogus"}, &out, &errOut); code != exitFail {
		t.Fatalf("code = %d, want %d", code, exitFail)
	}
}

func TestRunRejectsArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"run", "extra"}, &out, &errOut); code != exitFail {
		t.Fatalf("code = %d, want %d", code, exitFail)
	}
}

func TestRunHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"--help"}, &out, &errOut); code != exitOK {
		t.Fatalf("code = %d, want %d", code, exitOK)
	}
}
