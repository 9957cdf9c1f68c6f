package sigforge

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

// signTestMessage produces a real secp256k1 signature over the EIP-191 hash
// of message, returning the hex signature (v adjusted to 27/28), the signer
// address, and the uncompressed public key hex.
func signTestMessage(t *testing.T, message string) (sigHex, address, pubKeyHex string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sig, err := crypto.Sign(HashMessage(message), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[64] += 27

	address = strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	pubKeyHex = hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey))
	return "0x" + hex.EncodeToString(sig), address, pubKeyHex
}

func TestRecoverAddressRoundTrip(t *testing.T) {
	message := BuildMessage("0xbridge", "0xrecipient", "100.00", 1, 1750000000)
	sigHex, address, _ := signTestMessage(t, message)

	recovered, err := RecoverAddress(message, sigHex)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != address {
		t.Errorf("recovered %s, want %s", recovered, address)
	}
}

func TestVerifyAgainstPublicKey(t *testing.T) {
	message := "Bridgewatch|0xbridge|0xr|5.0|2|1750000000"
	sigHex, _, pubKeyHex := signTestMessage(t, message)

	v := NewEthereumVerifier()

	ok, err := v.Verify(context.Background(), sigHex, message, pubKeyHex)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("valid signature failed verification against public key")
	}

	ok, err = v.Verify(context.Background(), sigHex, message+" tampered", pubKeyHex)
	if err == nil && ok {
		t.Error("tampered message verified")
	}
}

func TestVerifyAgainstAddress(t *testing.T) {
	message := "Bridgewatch|0xbridge|0xr|5.0|3|1750000000"
	sigHex, address, _ := signTestMessage(t, message)

	v := NewEthereumVerifier()

	ok, err := v.Verify(context.Background(), sigHex, message, address)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("valid signature failed verification against address")
	}
}

func TestVerifySignerMatchesAndRejects(t *testing.T) {
	message := "Bridgewatch|0xbridge|0xr|5.0|4|1750000000"
	sigHex, address, _ := signTestMessage(t, message)

	v := NewEthereumVerifier()

	ok, err := v.VerifySigner(context.Background(), sigHex, message, address)
	if err != nil {
		t.Fatalf("verify signer: %v", err)
	}
	if !ok {
		t.Error("expected signer match")
	}

	ok, err = v.VerifySigner(context.Background(), sigHex, message, "0x0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("verify signer: %v", err)
	}
	if ok {
		t.Error("wrong signer accepted")
	}
}

func TestRecoverRejectsMalformedSignatures(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"not hex", "0xzz"},
		{"wrong length", "0x" + strings.Repeat("ab", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RecoverAddress("msg", tt.sig); err == nil {
				t.Error("expected error")
			}
		})
	}
}
