// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Builtin components are the standard components that supplement the core components of the engine.

package builtin

import (
	_ "github.com/diogin/tinox/hemi/builtin/handlets/hello"
	_ "github.com/diogin/tinox/hemi/builtin/loggers/simple"
)
