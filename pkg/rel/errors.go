// Copyright 2024-2025 framehq
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rel

import (
	"errors"
	"fmt"
)

var (
	// ErrExpression marks a structural invariant violated by the caller's
	// input. Fatal for that construction call.
	ErrExpression = errors.New("expression error")

	// ErrUnsupported marks an expression shape the rewriter has no rule
	// for. The caller falls back to a non-fused construction.
	ErrUnsupported = errors.New("unsupported expression")

	// errRebuild marks a failed node reconstruction during substitution.
	// Absorbed at the substitution boundary, never surfaced.
	errRebuild = errors.New("rebuild mismatch")
)

func expressionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExpression, fmt.Sprintf(format, args...))
}

func unsupportedErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

func rebuildErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errRebuild, fmt.Sprintf(format, args...))
}
