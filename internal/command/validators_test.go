// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator FlagValidatorType
		value     any
		wantErr   bool
	}{
		{"output text", OutputValidator, "text", false},
		{"output yaml", OutputValidator, "yaml", false},
		{"output raw", OutputValidator, "raw", true},
		{"store file", StoreValidator, "file", false},
		{"store sqlite", StoreValidator, "sqlite", false},
		{"store redis", StoreValidator, "redis", true},
		{"origin empty", OriginValidator, "", false},
		{"origin https", OriginValidator, "https://volunteer.example", false},
		{"origin trailing slash", OriginValidator, "http://localhost:5173/", false},
		{"origin no scheme", OriginValidator, "volunteer.example", true},
		{"origin ftp", OriginValidator, "ftp://volunteer.example", true},
		{"origin with path", OriginValidator, "https://volunteer.example/app", true},
		{"jammed", JammedFlagValidator, "--output", true},
		{"not jammed", JammedFlagValidator, "./cache", false},
		{"true", MustBeTrueValidator, true, false},
		{"false", MustBeTrueValidator, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FlagValidators(tt.value, tt.validator)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFlagValidatorsStopsAtFirstError(t *testing.T) {
	calls := 0
	count := func(any) error {
		calls++
		return nil
	}
	err := FlagValidators("--x", count, JammedFlagValidator, count)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
