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

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, cfg.Rewrite.FuseProjections)
	require.True(t, cfg.Rewrite.PushdownFilters)
	require.True(t, cfg.Rewrite.LiftColumns)
	require.False(t, cfg.Debug.Verbose)
}

func TestLoadConfig(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "tester.toml")
	data := `
[debug]
verbose = true

[rewrite]
pushdownFilters = false
`
	require.NoError(t, os.WriteFile(fpath, []byte(data), 0644))

	cfg, err := LoadConfig(fpath)
	require.NoError(t, err)
	require.True(t, cfg.Debug.Verbose)
	require.False(t, cfg.Rewrite.PushdownFilters)
	// untouched fields keep their defaults
	require.True(t, cfg.Rewrite.FuseProjections)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
