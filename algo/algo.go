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

// Package algo is the closed enumeration of SSH key and certificate
// algorithms, and the single static table that maps between their wire
// identifiers, their digest requirements, and their certificate/plain-type
// and classical/hybrid/post-quantum relationships.
//
// Every other package in this module consults this registry instead of
// switching on algorithm strings itself, so that adding a tag here is the
// only place a new algorithm needs to be taught to the codec, the key model,
// and the signature engine.
package algo

import "strings"

// Tag is a closed, internal enumeration over every SSH key and certificate
// algorithm this module understands.
type Tag uint16

const (
	// Unknown is the sentinel returned for unrecognized algorithm
	// identifiers.
	Unknown Tag = iota

	DSS
	RSA
	// RSA1 identifies the legacy SSHv1 RSA key format. It is recognized on
	// import only so that it can be rejected with a clear error.
	RSA1
	ECDSA256
	ECDSA384
	ECDSA521
	// ECDSAGeneric is a deprecated tag kept only so that the bare "ecdsa"
	// legacy alias has somewhere to resolve to; it never appears as the
	// type of a materialized Key.
	ECDSAGeneric
	ED25519

	DSSCert
	RSACert
	ECDSA256Cert
	ECDSA384Cert
	ECDSA521Cert
	ECDSA256SKCert
	ED25519Cert
	ED25519SKCert

	ECDSA256SK
	ED25519SK

	// Post-quantum tags. These are only meaningful when the registry is
	// built with PQ support, which this implementation always does (see
	// DESIGN.md for the Open Question this resolves). Falcon and SPHINCS+
	// are deliberately not represented here: circl's sign/schemes registry
	// only resolves Dilithium2/3/5 (and ML-DSA) by name, not a Falcon or
	// SPHINCS+ scheme, so there is no real generator to back those tags.
	Dilithium2
	Dilithium3
	Dilithium5

	HybridRSA3072Dilithium2
	HybridECDSA256Dilithium2
	HybridECDSA384Dilithium3
	HybridECDSA521Dilithium5
)

// Digest is the hash algorithm implied by a signature-algorithm identifier.
type Digest uint8

const (
	// Auto means the algorithm embeds its own hashing (Ed25519, pure PQ) or
	// no digest is applicable.
	Auto Digest = iota
	SHA1
	SHA256
	SHA384
	SHA512
)

// String returns a lower-case label for d, suitable for logging.
func (d Digest) String() string {
	switch d {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	default:
		return "auto"
	}
}

// entry is one row of the registry, keyed by Tag.
type entry struct {
	name    string   // canonical wire identifier; empty only for Unknown.
	aliases []string // additional identifiers that resolve to this tag via tag_of.
	digest  Digest   // the digest this key type's own signature identifier implies.
	plain   Tag      // the non-certificate projection of this tag (itself if not a cert).
	oqs     bool     // pure post-quantum tag.
	hybrid  bool     // classical+PQ hybrid tag.
	rsaHyb  bool     // hybrid pairs RSA-3072 as its classical half.
	ecHyb   bool     // hybrid pairs an ECDSA curve as its classical half.
	scheme  string   // circl sign.Scheme name backing the PQ half, if oqs or hybrid.
}

// table is the single static map every lookup in this package reads from.
var table = map[Tag]entry{
	Unknown: {name: ""},

	DSS:          {name: "ssh-dss", digest: SHA1, aliases: []string{"dsa"}},
	RSA:          {name: "ssh-rsa", digest: SHA1, aliases: []string{"rsa"}},
	RSA1:         {name: "ssh-rsa1"},
	ECDSA256:     {name: "ecdsa-sha2-nistp256", digest: SHA256},
	ECDSA384:     {name: "ecdsa-sha2-nistp384", digest: SHA384},
	ECDSA521:     {name: "ecdsa-sha2-nistp521", digest: SHA512},
	ECDSAGeneric: {name: "", aliases: []string{"ecdsa", "ssh-ecdsa"}},
	ED25519:      {name: "ssh-ed25519", digest: Auto},

	DSSCert:        {name: "ssh-dss-cert-v01@openssh.com", digest: SHA1},
	RSACert:        {name: "ssh-rsa-cert-v01@openssh.com", digest: SHA1},
	ECDSA256Cert:   {name: "ecdsa-sha2-nistp256-cert-v01@openssh.com", digest: SHA256},
	ECDSA384Cert:   {name: "ecdsa-sha2-nistp384-cert-v01@openssh.com", digest: SHA384},
	ECDSA521Cert:   {name: "ecdsa-sha2-nistp521-cert-v01@openssh.com", digest: SHA512},
	ED25519Cert:    {name: "ssh-ed25519-cert-v01@openssh.com", digest: Auto},
	ECDSA256SK:     {name: "sk-ecdsa-sha2-nistp256@openssh.com", digest: SHA256},
	ECDSA256SKCert: {name: "sk-ecdsa-sha2-nistp256-cert-v01@openssh.com", digest: SHA256},
	ED25519SK:      {name: "sk-ssh-ed25519@openssh.com", digest: Auto},
	ED25519SKCert:  {name: "sk-ssh-ed25519-cert-v01@openssh.com", digest: Auto},

	Dilithium2: {name: "ssh-dilithium2@openssh.com", digest: Auto, oqs: true, scheme: "Dilithium2"},
	Dilithium3: {name: "ssh-dilithium3@openssh.com", digest: Auto, oqs: true, scheme: "Dilithium3"},
	Dilithium5: {name: "ssh-dilithium5@openssh.com", digest: Auto, oqs: true, scheme: "Dilithium5"},

	HybridRSA3072Dilithium2:  {name: "ssh-rsa3072-dilithium2@openssh.com", digest: SHA256, hybrid: true, rsaHyb: true, scheme: "Dilithium2"},
	HybridECDSA256Dilithium2: {name: "ssh-ecdsa-nistp256-dilithium2@openssh.com", digest: SHA256, hybrid: true, ecHyb: true, scheme: "Dilithium2"},
	HybridECDSA384Dilithium3: {name: "ssh-ecdsa-nistp384-dilithium3@openssh.com", digest: SHA384, hybrid: true, ecHyb: true, scheme: "Dilithium3"},
	HybridECDSA521Dilithium5: {name: "ssh-ecdsa-nistp521-dilithium5@openssh.com", digest: SHA512, hybrid: true, ecHyb: true, scheme: "Dilithium5"},
}

// certOf maps a plain tag to its v01 certificate counterpart.
var certOf = map[Tag]Tag{
	DSS:        DSSCert,
	RSA:        RSACert,
	ECDSA256:   ECDSA256Cert,
	ECDSA384:   ECDSA384Cert,
	ECDSA521:   ECDSA521Cert,
	ED25519:    ED25519Cert,
	ECDSA256SK: ECDSA256SKCert,
	ED25519SK:  ED25519SKCert,
}

// byName and byAlias are built once from table for O(1) reverse lookups.
var byName = map[string]Tag{}
var byAlias = map[string]Tag{}

func init() {
	for tag, e := range table {
		if e.name != "" {
			byName[e.name] = tag
		}
		for _, a := range e.aliases {
			byAlias[a] = tag
		}
		if cert, ok := certOf[tag]; ok {
			fillPlain(cert, tag)
		}
	}
	for tag := range table {
		if _, ok := plainOf[tag]; !ok {
			plainOf[tag] = tag
		}
	}
}

var plainOf = map[Tag]Tag{}

func fillPlain(cert, plain Tag) { plainOf[cert] = plain }

// NameOf returns the canonical SSH wire identifier for tag, and false if tag
// is not a recognized, nameable algorithm (Unknown and the legacy
// ECDSAGeneric placeholder report ok=false; RSA1 reports "ssh-rsa1").
func NameOf(tag Tag) (name string, ok bool) {
	e, exists := table[tag]
	if !exists || e.name == "" {
		return "", false
	}
	return e.name, true
}

// TagOf resolves a canonical identifier or legacy alias ("rsa", "dsa",
// "ssh-ecdsa", "ecdsa") to its Tag. Unrecognized identifiers resolve to
// Unknown.
func TagOf(name string) Tag {
	if tag, ok := byName[name]; ok {
		return tag
	}
	if tag, ok := byAlias[name]; ok {
		return tag
	}
	return Unknown
}

// SignatureTagOf behaves like TagOf, except that it additionally maps the
// RFC 8332 signature-algorithm identifiers "rsa-sha2-256" and
// "rsa-sha2-512" onto RSA, since those strings never name a key type on
// their own.
func SignatureTagOf(name string) Tag {
	switch name {
	case "rsa-sha2-256", "rsa-sha2-512":
		return RSA
	default:
		return TagOf(name)
	}
}

// hashByName is the authoritative signature-algorithm -> digest table from
// spec §4.1, keyed by the exact wire signature-algorithm string rather than
// by Tag, since "ssh-rsa" and "rsa-sha2-256" share a Tag but not a Digest.
var hashByName = map[string]Digest{
	"ssh-dss":                             SHA1,
	"ssh-rsa":                             SHA1,
	"rsa-sha2-256":                        SHA256,
	"rsa-sha2-512":                        SHA512,
	"ecdsa-sha2-nistp256":                 SHA256,
	"ecdsa-sha2-nistp384":                 SHA384,
	"ecdsa-sha2-nistp521":                 SHA512,
	"ssh-ed25519":                         Auto,
	"sk-ecdsa-sha2-nistp256@openssh.com": SHA256,
	"sk-ssh-ed25519@openssh.com":         Auto,
}

// HashOf returns the digest implied by a signature-algorithm wire
// identifier, and false if name is not recognized. Cert-suffixed and pure-PQ
// identifiers fall back to the plain key type's own table entry; hybrid
// identifiers resolve to the table's own digest, since spec §4.1's digest
// table assigns every hybrid a concrete classical-half digest (SHA256 for
// the RSA-3072 and P-256 hybrids, SHA384/SHA512 for P-384/P-521) rather than
// Auto — only the PQ half embeds its own hashing.
//
// Per spec §9 "Unknown-signature-name default", callers that treat ok=false
// as Auto must log a warning themselves; this package performs no logging,
// since the registry is meant to be a pure, concurrency-safe lookup.
func HashOf(name string) (d Digest, ok bool) {
	if d, ok := hashByName[name]; ok {
		return d, true
	}
	plain := strings.TrimSuffix(name, "-cert-v01@openssh.com")
	tag := TagOf(plain)
	if tag == Unknown {
		return Auto, false
	}
	e := table[tag]
	if e.oqs || tag == ED25519 || tag == ED25519Cert ||
		tag == ED25519SK || tag == ED25519SKCert {
		return Auto, true
	}
	return e.digest, true
}

// PlainOf strips a v01 certificate suffix from tag, returning the key's
// plain-type projection. It is idempotent: PlainOf(PlainOf(t)) == PlainOf(t).
func PlainOf(tag Tag) Tag {
	if p, ok := plainOf[tag]; ok {
		return p
	}
	return tag
}

// SignatureName is the inverse of HashOf for key types: it returns the
// on-the-wire signature-algorithm identifier to use when signing with a key
// of type tag at digest d. For RSA and RSACert this selects among
// "ssh-rsa", "rsa-sha2-256", and "rsa-sha2-512" (plus their cert-v01
// counterparts); for every other tag, it is simply NameOf(tag).
func SignatureName(tag Tag, d Digest) (string, bool) {
	switch tag {
	case RSA:
		return rsaSigName(d, false)
	case RSACert:
		return rsaSigName(d, true)
	default:
		return NameOf(tag)
	}
}

func rsaSigName(d Digest, cert bool) (string, bool) {
	var base string
	switch d {
	case SHA256:
		base = "rsa-sha2-256"
	case SHA512:
		base = "rsa-sha2-512"
	case SHA1, Auto:
		base = "ssh-rsa"
	default:
		return "", false
	}
	if cert {
		return base + "-cert-v01@openssh.com", true
	}
	return base, true
}

// IsCert reports whether tag names a v01 certificate variant.
func IsCert(tag Tag) bool {
	name, ok := NameOf(tag)
	return ok && strings.HasSuffix(name, "-cert-v01@openssh.com")
}

// IsOQS reports whether tag is a pure post-quantum algorithm (no classical
// half).
func IsOQS(tag Tag) bool {
	return table[tag].oqs
}

// IsHybrid reports whether tag pairs a classical algorithm with a
// post-quantum one under a single signature.
func IsHybrid(tag Tag) bool {
	return table[tag].hybrid
}

// IsRSAHybrid reports whether tag is a hybrid whose classical half is
// RSA-3072.
func IsRSAHybrid(tag Tag) bool {
	return table[tag].hybrid && table[tag].rsaHyb
}

// IsECDSAHybrid reports whether tag is a hybrid whose classical half is an
// ECDSA curve.
func IsECDSAHybrid(tag Tag) bool {
	return table[tag].hybrid && table[tag].ecHyb
}

// OQSScheme returns the circl sign.Scheme name backing tag's post-quantum
// material, and false if tag is neither a pure-PQ nor a hybrid algorithm.
func OQSScheme(tag Tag) (string, bool) {
	e := table[tag]
	if e.oqs || e.hybrid {
		return e.scheme, true
	}
	return "", false
}
