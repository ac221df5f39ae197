// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Tinox, a single-threaded non-blocking HTTP/1.1 server.

package main

import (
	"github.com/diogin/tinox/hemi/process"

	_ "github.com/diogin/tinox/hemi/builtin" // all builtin components
)

func main() {
	process.Main(&process.Opts{
		ProgramName:  "tinox",
		ProgramTitle: "Tinox",
		DebugLevel:   0,
		Address:      ":10080",
	})
}
