/*
Copyright 2026 The Segplan Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package vterrors

import (
	"fmt"
	"runtime"
	"strings"
)

// stack represents a stack of program counters.
type stack []uintptr

func (s *stack) Format(st fmt.State, verb rune) {
	if s == nil || verb != 'v' {
		return
	}
	frames := runtime.CallersFrames(*s)
	for {
		frame, more := frames.Next()
		fn := frame.Function
		if fn == "" {
			fn = "unknown"
		}
		fmt.Fprintf(st, "\n%s\n\t%s:%d", fn, trimGOPATH(frame.Function, frame.File), frame.Line)
		if !more {
			return
		}
	}
}

// callers skips itself, the public constructor and runtime.Callers.
func callers() *stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st stack = pcs[0:n]
	return &st
}

// trimGOPATH removes everything before the package path of the function
// so that stacks are stable across build machines.
func trimGOPATH(name, file string) string {
	const sep = "/"
	goal := strings.Count(name, sep) + 2
	i := len(file)
	for n := 0; n < goal; n++ {
		i = strings.LastIndex(file[:i], sep)
		if i == -1 {
			i = -len(sep)
			break
		}
	}
	return file[i+len(sep):]
}
