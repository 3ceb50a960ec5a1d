// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"regexp"
	"strconv"
	"time"
)

// placeholderRe matches ${name} placeholders. Identifiers are ASCII
// word characters; there is no nesting and no recursive substitution.
var placeholderRe = regexp.MustCompile(`\$\{(\w+)\}`)

// Vars is the per-execution variable context mapping names to string
// values. It is mutated by bulk row loads, step extractions and
// built-ins; substitution never mutates it. A Vars value is owned by
// one worker and must not be shared.
type Vars map[string]string

// NewVars returns an empty variable context.
func NewVars() Vars {
	return make(Vars)
}

// Set binds name to value, overwriting any previous binding.
func (v Vars) Set(name, value string) {
	v[name] = value
}

// Lookup returns the value bound to name.
func (v Vars) Lookup(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

// Load copies all bindings from row into v, overwriting existing keys.
func (v Vars) Load(row map[string]string) {
	for k, val := range row {
		v[k] = val
	}
}

// Substitute resolves all ${name} placeholders in s against v.
// Placeholders without a binding are left as literal text; a template
// author spots the unreplaced ${name} in the outgoing request rather
// than silently sending an empty value.
func (v Vars) Substitute(s string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		if val, ok := v[name]; ok {
			return val
		}
		return m
	})
}

// setBuiltins refreshes the synthesized per-execution variables.
func (v Vars) setBuiltins(now time.Time) {
	v["__timestamp"] = strconv.FormatInt(now.UnixMilli(), 10)
}
