// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/deep-rent/sshpki/env"
)

// config holds the process-wide settings read from the environment. The
// per-subcommand flags registered in commands.go do not cover these
// settings; log level, log format and FIPS mode come from the environment
// (or the defaults below) only.
type config struct {
	LogLevel  string `env:",default:info"`
	LogFormat string `env:",default:text"`
	FIPSMode  bool   `env:",default:false"`
}

func loadConfig() (config, error) {
	var c config
	if err := env.Unmarshal(&c); err != nil {
		return config{}, err
	}
	return c, nil
}
