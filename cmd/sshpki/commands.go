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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/flag"
	"github.com/deep-rent/sshpki/pki"
)

// friendlyTags maps short CLI-facing algorithm names to registry tags, since
// algo.TagOf only resolves canonical wire identifiers and a handful of
// legacy aliases, not the shorthand a command-line user would type.
var friendlyTags = map[string]algo.Tag{
	"dsa":                 algo.DSS,
	"rsa":                 algo.RSA,
	"ecdsa256":            algo.ECDSA256,
	"ecdsa384":            algo.ECDSA384,
	"ecdsa521":            algo.ECDSA521,
	"ed25519":             algo.ED25519,
	"dilithium2":          algo.Dilithium2,
	"dilithium3":          algo.Dilithium3,
	"dilithium5":          algo.Dilithium5,
	"rsa3072-dilithium2":  algo.HybridRSA3072Dilithium2,
	"ecdsa256-dilithium2": algo.HybridECDSA256Dilithium2,
	"ecdsa384-dilithium3": algo.HybridECDSA384Dilithium3,
	"ecdsa521-dilithium5": algo.HybridECDSA521Dilithium5,
}

func resolveTag(name string) (algo.Tag, error) {
	if tag, ok := friendlyTags[name]; ok {
		return tag, nil
	}
	if tag := algo.TagOf(name); tag != algo.Unknown {
		return tag, nil
	}
	return algo.Unknown, fmt.Errorf("unrecognized key type %q", name)
}

func runGenerate(args []string, logger *slog.Logger) error {
	var (
		typeName   string
		bits       int
		out        string
		comment    string
		passphrase string
		cipher     string
		rounds     int
	)
	fs := flag.New("sshpki generate")
	fs.Add(&typeName, "t", "type", "Key type (ed25519, rsa, ecdsa256, ecdsa384, ecdsa521, dsa, dilithium2/3/5, or a rsaNNNN-/ecdsaNNN-dilithiumN hybrid)")
	fs.Add(&bits, "b", "bits", "RSA modulus size in bits (RSA and RSA-hybrid types only)")
	fs.Add(&out, "o", "out", "Output path for the private key (the public key is written to <out>.pub)")
	fs.Add(&comment, "c", "comment", "Comment embedded in the key file")
	fs.Add(&passphrase, "p", "passphrase", "Passphrase to encrypt the private key with")
	fs.Add(&cipher, "", "cipher", "openssh-key-v1 cipher name (default aes256-ctr)")
	fs.Add(&rounds, "", "rounds", "bcrypt-pbkdf rounds (default 16)")
	fs.Parse(args...)

	if typeName == "" || out == "" {
		return fmt.Errorf("generate: -t/--type and -o/--out are required")
	}
	tag, err := resolveTag(typeName)
	if err != nil {
		return err
	}

	priv, err := pki.Generate(tag, bits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	if err := pki.ExportPrivateKeyFile(priv, out, passphrase, comment, cipher, rounds, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	pub, err := pki.ExportPrivateKeyToPublicKey(priv)
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}
	if err := pki.ExportPublicKeyFile(pub, comment, out+".pub", 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	logger.Info("generated key pair", "type", typeName, "out", out)
	return nil
}

func runPubkey(args []string, logger *slog.Logger) error {
	var in, out, passphrase, comment string
	fs := flag.New("sshpki pubkey")
	fs.Add(&in, "i", "in", "Input private key path")
	fs.Add(&out, "o", "out", "Output public key path (defaults to stdout)")
	fs.Add(&passphrase, "p", "passphrase", "Passphrase for an encrypted private key")
	fs.Add(&comment, "c", "comment", "Comment to embed in the exported public key")
	fs.Parse(args...)

	if in == "" {
		return fmt.Errorf("pubkey: -i/--in is required")
	}
	priv, err := pki.ImportPrivateKeyFile(in, passphrase, nil, logger)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	pub, err := pki.ExportPrivateKeyToPublicKey(priv)
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	line, err := pki.ExportPublicKeyBase64(pub, comment)
	if err != nil {
		return fmt.Errorf("render public key: %w", err)
	}
	if out == "" {
		fmt.Println(line)
		return nil
	}
	return pki.ExportPublicKeyFile(pub, comment, out, 0o644)
}

func runAttachCert(args []string, logger *slog.Logger) error {
	var keyPath, certPath, passphrase string
	fs := flag.New("sshpki attach-cert")
	fs.Add(&keyPath, "k", "key", "Private key path to attach the certificate to")
	fs.Add(&certPath, "c", "cert", "Certificate public-key path (ssh-keygen -s output)")
	fs.Add(&passphrase, "p", "passphrase", "Passphrase for an encrypted private key")
	fs.Parse(args...)

	if keyPath == "" || certPath == "" {
		return fmt.Errorf("attach-cert: -k/--key and -c/--cert are required")
	}

	priv, err := pki.ImportPrivateKeyFile(keyPath, passphrase, nil, logger)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	certLine, err := readFirstLine(certPath)
	if err != nil {
		return fmt.Errorf("read certificate file: %w", err)
	}
	certAK, err := pki.ImportCertificateBase64(certLine)
	if err != nil {
		return fmt.Errorf("import certificate: %w", err)
	}
	if err := pki.CopyCertToPrivateKey(certAK.Key, priv); err != nil {
		return fmt.Errorf("attach certificate: %w", err)
	}
	if err := pki.ExportPrivateKeyFile(priv, keyPath, passphrase, "", "", 0, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	logger.Info("attached certificate", "key", keyPath, "cert", certPath)
	return nil
}

func runSign(args []string, logger *slog.Logger, fips bool) error {
	var keyPath, inPath, outPath, passphrase string
	fs := flag.New("sshpki sign")
	fs.Add(&keyPath, "k", "key", "Private key path")
	fs.Add(&inPath, "f", "file", "File to sign")
	fs.Add(&outPath, "o", "out", "Output signature path (defaults to <file>.sig)")
	fs.Add(&passphrase, "p", "passphrase", "Passphrase for an encrypted private key")
	fs.Parse(args...)

	if keyPath == "" || inPath == "" {
		return fmt.Errorf("sign: -k/--key and -f/--file are required")
	}
	if outPath == "" {
		outPath = inPath + ".sig"
	}

	priv, err := pki.ImportPrivateKeyFile(keyPath, passphrase, nil, logger)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	blob, err := pki.Sign(nil, priv, data, fips)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		return fmt.Errorf("write signature: %w", err)
	}
	logger.Info("wrote signature", "out", outPath)
	return nil
}

func runVerify(args []string, logger *slog.Logger, fips bool) error {
	var keyPath, inPath, sigPath string
	fs := flag.New("sshpki verify")
	fs.Add(&keyPath, "k", "key", "Public key path")
	fs.Add(&inPath, "f", "file", "Signed file")
	fs.Add(&sigPath, "s", "sig", "Detached signature path")
	fs.Parse(args...)

	if keyPath == "" || inPath == "" || sigPath == "" {
		return fmt.Errorf("verify: -k/--key, -f/--file, and -s/--sig are required")
	}

	pubAK, err := pki.ImportPublicKeyFile(keyPath, nil)
	if err != nil {
		return fmt.Errorf("import public key: %w", err)
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	blob, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("read signature file: %w", err)
	}

	if err := pki.VerifyBlob(nil, pubAK.Key, blob, data, fips); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	logger.Info("signature valid", "key", keyPath, "file", inPath)
	return nil
}

func readFirstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	return "", fmt.Errorf("%s contains no key line", path)
}
