package sigforge

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// EthereumVerifier implements CryptoVerifier and SignerVerifier over
// secp256k1 EIP-191 personal-sign signatures, the scheme used by the bridges
// this service watches.
type EthereumVerifier struct{}

// NewEthereumVerifier creates the production verifier.
func NewEthereumVerifier() *EthereumVerifier {
	return &EthereumVerifier{}
}

// HashMessage creates an Ethereum signed message hash, prefixing the message
// with "\x19Ethereum Signed Message:\n{len}" per EIP-191.
func HashMessage(message string) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix + message))
}

// recoverPubkey recovers the uncompressed public key bytes from a message
// and a hex-encoded 65-byte (r||s||v) signature.
func recoverPubkey(message, signatureHex string) ([]byte, error) {
	sigHex := strings.TrimPrefix(signatureHex, "0x")

	signature, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(signature) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}

	// Ethereum signatures carry v = 27 or 28; Ecrecover expects 0 or 1.
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	return crypto.Ecrecover(HashMessage(message), sig)
}

// RecoverAddress recovers the signer's address from a message and signature.
func RecoverAddress(message, signatureHex string) (string, error) {
	pubKeyBytes, err := recoverPubkey(message, signatureHex)
	if err != nil {
		return "", err
	}

	pubKey, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return "", fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pubKey).Hex()), nil
}

// Verify checks that the signature recovers to the given public key. The
// key may be a hex-encoded uncompressed public key or a 0x address.
func (v *EthereumVerifier) Verify(_ context.Context, signature, message, publicKey string) (bool, error) {
	recovered, err := recoverPubkey(message, signature)
	if err != nil {
		return false, err
	}

	key := strings.TrimPrefix(strings.ToLower(publicKey), "0x")

	// Address form: compare against the address derived from the recovered key.
	if len(key) == 40 {
		addr, err := RecoverAddress(message, signature)
		if err != nil {
			return false, err
		}
		return strings.TrimPrefix(addr, "0x") == key, nil
	}

	return strings.EqualFold(hex.EncodeToString(recovered), key), nil
}

// VerifySigner checks that the signature over the message was produced by
// the expected signer address.
func (v *EthereumVerifier) VerifySigner(_ context.Context, signature, message, expectedSigner string) (bool, error) {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(recovered, expectedSigner), nil
}

// StaticVerifier returns fixed answers from both delegate interfaces.
// Used in tests and dry-run mode where no real key material exists.
type StaticVerifier struct {
	CryptoOK bool
	SignerOK bool
}

func (s StaticVerifier) Verify(context.Context, string, string, string) (bool, error) {
	return s.CryptoOK, nil
}

func (s StaticVerifier) VerifySigner(context.Context, string, string, string) (bool, error) {
	return s.SignerOK, nil
}
