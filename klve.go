// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"crypto/x509"
	"encoding/hex"
	"errors"

	"go.mozilla.org/pkcs7"
)

// klveWrapperUL is the well-known UL used for an encrypted KLV triplet
// ("KLVE") wrapping an arbitrary plaintext essence or metadata KLV. The
// core treats crypto wrappers as a transforming KLVObject subclass hook
// (spec.md §1 "out of scope: the crypto wrappers, treated as a
// transforming KLV subclass hook") — only the envelope shape is modelled
// here, not a full AS-DCP decoder.
var klveWrapperUL = ULFromHex("060e2b34020101010d010301020b0000")

// EncryptedKLVObject is the transforming KLVObject subclass described in
// spec.md §4.4: on disk it carries a different UL, a 32-byte context
// prefix, a 16-byte check block, and ciphertext padded to a 16-byte block;
// to callers it reports the plaintext UL and a reduced value length.
type EncryptedKLVObject struct {
	*KLVObject

	PlaintextUL UL

	// ContextPrefix is the 32-byte header preceding the check block
	// (source/track context in the real AS-DCP scheme; opaque here).
	ContextPrefix [32]byte

	// CheckValue is the 16-byte check block used to validate the
	// decryption key without decrypting the whole payload.
	CheckValue [16]byte

	plaintextLength uint64

	// Certificate, if a signed certificate chain accompanied the
	// key-wrapping for this KLVE (see VerifySignedCertificate).
	Certificate *CertInfo
}

// CertInfo wraps the fields of a pkcs7-parsed certificate chain that
// matter for provenance display, mirroring the teacher's security.go
// CertInfo shape (issuer, subject, serial number and signature algorithm;
// no validity window is recorded) applied to MXF's own
// KLVE key-wrapping certificates instead of Authenticode ones.
type CertInfo struct {
	Issuer             string
	Subject            string
	SerialNumber       string
	SignatureAlgorithm x509.SignatureAlgorithm
}

// NewEncryptedKLVObject wraps an already-read KLVObject whose Key is the
// KLVE wrapper UL, decoding the fixed-size prefix and check block so the
// plaintext UL and length become visible to callers (spec.md §4.4
// "Decryption mirrors this: read the wrapper header, reveal the plaintext
// UL, and expose a reduced value_length").
func NewEncryptedKLVObject(k *KLVObject) (*EncryptedKLVObject, error) {
	if !k.Key.VersionlessEqual(klveWrapperUL) {
		return nil, errors.New("mxf: not a KLVE-wrapped KLV")
	}

	const headerSize = 16 + 32 + 16 // plaintext UL + context prefix + check value
	header, err := k.ReadDataFrom(0, headerSize)
	if err != nil {
		return nil, err
	}

	e := &EncryptedKLVObject{KLVObject: k}
	copy(e.PlaintextUL[:], header[0:16])
	copy(e.ContextPrefix[:], header[16:48])
	copy(e.CheckValue[:], header[48:64])

	cipherLen := int64(k.Length) - headerSize
	if cipherLen < 0 {
		return nil, ErrShortRead
	}
	// Ciphertext is padded to a 16-byte block; the true plaintext length
	// is recovered by the transforming subclass's own framing (outside the
	// envelope this hook models) — expose the padded length as a
	// conservative reduced value_length.
	e.plaintextLength = uint64(cipherLen)

	return e, nil
}

// OuterKey returns the plaintext UL, the "outer UL reported to callers
// after header consumption" per spec.md §4.4. The embedded KLVObject's
// Key field still holds the raw on-disk wrapper UL.
func (e *EncryptedKLVObject) OuterKey() UL { return e.PlaintextUL }

// ValueLength returns the reduced value length callers see once the
// envelope overhead has been stripped.
func (e *EncryptedKLVObject) ValueLength() uint64 { return e.plaintextLength }

// CheckValueHex renders the 16-byte check block for diagnostics.
func (e *EncryptedKLVObject) CheckValueHex() string {
	return hex.EncodeToString(e.CheckValue[:])
}

// VerifySignedCertificate parses a PKCS#7 SignedData blob carried
// alongside the KLVE key-wrapping (an X.509-based provenance mechanism
// analogous to SMPTE 429-6 cryptographic metadata) and records its
// signer's certificate, the way the teacher's parseSecurityDirectory
// parses an Authenticode PKCS#7 blob out of a PE certificate table.
// trustedRoots may be nil to skip chain verification and only extract
// certificate identity.
func (e *EncryptedKLVObject) VerifySignedCertificate(blob []byte, trustedRoots *x509.CertPool) (*CertInfo, error) {
	p7, err := pkcs7.Parse(blob)
	if err != nil {
		return nil, err
	}
	if len(p7.Signers) == 0 || len(p7.Certificates) == 0 {
		return nil, errors.New("mxf: signed certificate blob has no signer")
	}

	serial := p7.Signers[0].IssuerAndSerialNumber.SerialNumber
	info := &CertInfo{}
	for _, cert := range p7.Certificates {
		if cert.SerialNumber == nil || serial == nil || cert.SerialNumber.Cmp(serial) != 0 {
			continue
		}
		info.SerialNumber = hex.EncodeToString(cert.SerialNumber.Bytes())
		info.SignatureAlgorithm = cert.SignatureAlgorithm
		info.Issuer = cert.Issuer.CommonName
		info.Subject = cert.Subject.CommonName
		break
	}

	if trustedRoots != nil {
		if err := p7.VerifyWithChain(trustedRoots); err != nil {
			return info, err
		}
	}

	e.Certificate = info
	return info, nil
}
