// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestCustomHandler_HandleLog(t *testing.T) {
	var buf bytes.Buffer
	h := NewCustomHandler(&buf)
	h.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	logger := &log.Logger{Handler: h, Level: log.DebugLevel}
	logger.WithFields(log.Fields{"key": "GET /", "bucket": "em-pwa-v1"}).Warn("store-back failed")

	assert.Equal(t, "2025-03-04 05:06:07 W store-back failed bucket=em-pwa-v1 key=GET /\n", buf.String())
}

func TestInitLogger_Level(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level log.Level
	}{
		{name: "default", env: "", level: log.ErrorLevel},
		{name: "debug", env: "debug", level: log.DebugLevel},
		{name: "warn upper", env: "WARN", level: log.WarnLevel},
		{name: "garbage", env: "chatty", level: log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ASSETCACHE_LOG", tt.env)
			InitLogger()
			l, ok := log.Log.(*log.Logger)
			assert.True(t, ok)
			assert.Equal(t, tt.level, l.Level)
		})
	}
}
