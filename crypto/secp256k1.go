// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of erc4337
//
// erc4337 is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// erc4337 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with erc4337.  If not, see <https://www.gnu.org/licenses/>.

package crypto

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/irfanm0/erc4337/data/basics"
)

// SignatureLength is the length of a recoverable secp256k1 signature in [R || S || V] form.
const SignatureLength = 65

// Signature is a recoverable secp256k1 signature. V is accepted as 0/1 or 27/28.
type Signature []byte

// SignatureSecrets holds a secp256k1 private key and the address derived from it.
type SignatureSecrets struct {
	key     *ecdsa.PrivateKey
	Address basics.Address
}

// GenerateSignatureSecrets creates a fresh random key.
func GenerateSignatureSecrets() (*SignatureSecrets, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return makeSecrets(key), nil
}

// SecretsFromHex loads a hex encoded private key.
func SecretsFromHex(hexkey string) (*SignatureSecrets, error) {
	key, err := ethcrypto.HexToECDSA(hexkey)
	if err != nil {
		return nil, fmt.Errorf("SecretsFromHex: %w", err)
	}
	return makeSecrets(key), nil
}

func makeSecrets(key *ecdsa.PrivateKey) *SignatureSecrets {
	return &SignatureSecrets{
		key:     key,
		Address: basics.Address(ethcrypto.PubkeyToAddress(key.PublicKey)),
	}
}

// HexKey returns the private key in hex, without a 0x prefix.
func (s *SignatureSecrets) HexKey() string {
	return fmt.Sprintf("%x", ethcrypto.FromECDSA(s.key))
}

// SignDigest signs a digest directly.
func (s *SignatureSecrets) SignDigest(d Digest) (Signature, error) {
	return ethcrypto.Sign(d[:], s.key)
}

// Sign signs the hash of a Hashable object.
func (s *SignatureSecrets) Sign(message Hashable) (Signature, error) {
	return s.SignDigest(HashObj(message))
}

// RecoverSigner recomputes the address that produced sig over d. A malformed
// signature, or one that does not recover to a valid key, yields ok == false.
func RecoverSigner(d Digest, sig Signature) (addr basics.Address, ok bool) {
	if len(sig) != SignatureLength {
		return basics.Address{}, false
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return basics.Address{}, false
	}
	pub, err := ethcrypto.SigToPub(d[:], normalized)
	if err != nil {
		return basics.Address{}, false
	}
	return basics.Address(ethcrypto.PubkeyToAddress(*pub)), true
}
