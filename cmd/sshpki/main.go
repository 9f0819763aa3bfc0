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

// Command sshpki is a thin CLI over the pki façade: it generates, imports,
// exports, signs, verifies, and attaches certificates to SSH keys without
// needing an actual SSH session.
package main

import (
	"fmt"
	"os"

	"github.com/deep-rent/sshpki/log"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sshpki: load config:", err)
		os.Exit(1)
	}

	logger := log.New(
		log.WithLevel(cfg.LogLevel),
		log.WithFormat(cfg.LogFormat),
	)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "generate":
		runErr = runGenerate(args, logger)
	case "pubkey":
		runErr = runPubkey(args, logger)
	case "attach-cert":
		runErr = runAttachCert(args, logger)
	case "sign":
		runErr = runSign(args, logger, cfg.FIPSMode)
	case "verify":
		runErr = runVerify(args, logger, cfg.FIPSMode)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "sshpki: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		logger.Error("command failed", "command", cmd, "error", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: sshpki <command> [flags]

Commands:
  generate     Create a new SSH key pair
  pubkey       Derive a public key from a private key
  attach-cert  Attach a v01 certificate to a private key
  sign         Produce a detached signature over a file
  verify       Verify a detached signature against a file
  help         Show this message

Run "sshpki <command> -h" for flags specific to a command.`)
}
