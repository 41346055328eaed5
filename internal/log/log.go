// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/assetcache/internal/config"
)

// InitLogger sets up Apex with a custom handler and a log level from the
// ASSETCACHE_LOG env variable. Log lines go to stderr so that command output
// on stdout stays machine readable.
func InitLogger() {
	level := "ERROR"
	if env, err := config.LoadEnv(); err == nil && env.Log != "" {
		level = strings.ToUpper(env.Log)
	}
	log.SetHandler(NewCustomHandler(os.Stderr))

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.ErrorLevel
	}
	log.SetLevel(lvl)
}

// CustomHandler formats log messages as a single line.
type CustomHandler struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewCustomHandler returns a handler writing to w.
func NewCustomHandler(w io.Writer) *CustomHandler {
	return &CustomHandler{out: w, now: time.Now}
}

// HandleLog implements the log.Handler interface. Fields are appended as
// sorted key=value pairs.
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := h.now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}
