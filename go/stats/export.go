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

// Package stats holds the in-process counters the planner publishes.
//
// Every variable created with a non-empty name is published through expvar
// and handed to the registered export hooks, such as the Prometheus backend.
package stats

import (
	"expvar"
	"sync"
)

// Variable is the minimal interface every stats variable implements.
type Variable interface {
	expvar.Var
	// Help returns the help string for the variable.
	Help() string
}

// NewVarHook is called for every published variable.
type NewVarHook func(name string, v expvar.Var)

type varGroup struct {
	sync.Mutex
	vars       map[string]expvar.Var
	order      []string
	newVarHook []NewVarHook
}

var defaultVarGroup = varGroup{vars: make(map[string]expvar.Var)}

// Register adds a hook that is called for every variable published from
// now on, and immediately for every variable already published.
func Register(nvh NewVarHook) {
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	defaultVarGroup.newVarHook = append(defaultVarGroup.newVarHook, nvh)
	for _, name := range defaultVarGroup.order {
		nvh(name, defaultVarGroup.vars[name])
	}
}

// Lookup returns the published variable named name, or nil.
func Lookup(name string) expvar.Var {
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	return defaultVarGroup.vars[name]
}

func publish(name string, v expvar.Var) {
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	expvar.Publish(name, v)
	defaultVarGroup.vars[name] = v
	defaultVarGroup.order = append(defaultVarGroup.order, name)
	for _, hook := range defaultVarGroup.newVarHook {
		hook(name, v)
	}
}
