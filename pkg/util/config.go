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
	"github.com/BurntSushi/toml"
)

type DebugOptions struct {
	PrintExpr    bool `toml:"printExpr"`
	PrintRewrite bool `toml:"printRewrite"`
	Verbose      bool `toml:"verbose"`
}

type RewriteOptions struct {
	FuseProjections bool `toml:"fuseProjections"`
	PushdownFilters bool `toml:"pushdownFilters"`
	LiftColumns     bool `toml:"liftColumns"`
}

type Config struct {
	Debug   DebugOptions   `toml:"debug"`
	Rewrite RewriteOptions `toml:"rewrite"`
}

func DefaultConfig() *Config {
	return &Config{
		Rewrite: RewriteOptions{
			FuseProjections: true,
			PushdownFilters: true,
			LiftColumns:     true,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
