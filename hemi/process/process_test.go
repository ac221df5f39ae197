// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package process

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	opts := &Opts{ProgramName: "tinox", Address: ":10080"}
	baseDir = t.TempDir()
	configFile, address = "", ""
	defer func() { baseDir, configFile, address = "", "", "" }()

	text, err := loadConfig(opts) // no default config file
	if err != nil || text != ".address = \":10080\"\n" {
		t.Errorf("text=%q err=%v", text, err)
	}

	if err := os.MkdirAll(filepath.Join(baseDir, "conf"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(baseDir, "conf", "tinox.conf"), []byte(".maxConns = 100"), 0644); err != nil {
		t.Fatal(err)
	}
	address = "127.0.0.1:8080"
	text, err = loadConfig(opts)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 3 || lines[1] != ".maxConns = 100" || lines[2] != `.address = "127.0.0.1:8080"` {
		t.Errorf("lines=%q", lines)
	}

	configFile = "missing.conf"
	if _, err := loadConfig(opts); err == nil {
		t.Error("missing config file is not reported")
	}
}
