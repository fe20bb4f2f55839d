package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_InputErrors(t *testing.T) {
	receipt := writeFile(t, "receipt.json", `{"cose": "AAAA"}`)
	noCOSE := writeFile(t, "empty.json", `{}`)
	key := writeFile(t, "key.pem", "-----BEGIN PUBLIC KEY-----\n-----END PUBLIC KEY-----\n")
	missing := filepath.Join(t.TempDir(), "missing.json")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, 0},
		{"short help", []string{"-h"}, 0},
		{"no flags", nil, 2},
		{"missing receipt", []string{"--public-key", key}, 2},
		{"missing public key", []string{"--receipt", receipt}, 2},
		{"unknown flag", []string{"--receipt", receipt, "--public-key", key, "--verbose"}, 2},
		{"unreadable receipt", []string{"--receipt", missing, "--public-key", key}, 2},
		{"receipt without cose", []string{"--receipt", noCOSE, "--public-key", key}, 2},
		{"unreadable public key", []string{"--receipt", receipt, "--public-key", missing}, 2},
		{"fee out of range", []string{"--receipt", receipt, "--public-key", key, "--fee-bps", "10001"}, 2},
		{"malformed public key", []string{"--receipt", receipt, "--public-key", key}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.want, run(tt.args))
		})
	}
}
