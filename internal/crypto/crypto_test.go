package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

// Well-known test vector key (hardhat account #0). Never fund this address.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestSignerAddressDerivation(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if got := s.Address().Hex(); got != testAddress {
		t.Errorf("address = %s, want %s", got, testAddress)
	}

	// 0x prefix is accepted too.
	s2, err := NewSigner("0x"+testKeyHex, 137)
	if err != nil {
		t.Fatalf("NewSigner with prefix: %v", err)
	}
	if s2.Address() != s.Address() {
		t.Error("prefixed and unprefixed keys should derive the same address")
	}
}

func TestSignAuthMessageShape(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	sig, err := s.SignAuthMessage(testAddress, 1700000000, 0)
	if err != nil {
		t.Fatalf("SignAuthMessage: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+65*2 {
		t.Errorf("signature = %q, want 0x-prefixed 65-byte hex", sig)
	}

	// Same inputs must sign deterministically.
	sig2, err := s.SignAuthMessage(testAddress, 1700000000, 0)
	if err != nil {
		t.Fatalf("SignAuthMessage: %v", err)
	}
	if sig != sig2 {
		t.Error("signature is not deterministic for identical inputs")
	}
}

func TestSignOrder(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	payload := OrderPayload{
		Salt:        "12345",
		Maker:       testAddress,
		Signer:      testAddress,
		Taker:       "0x0000000000000000000000000000000000000000",
		TokenID:     "7132107",
		MakerAmount: "20000000",
		TakerAmount: "42553191",
		Expiration:  "0",
		Nonce:       "0",
		FeeRateBps:  "0",
		Side:        0,
	}
	sig, err := s.SignOrder(payload)
	if err != nil {
		t.Fatalf("SignOrder: %v", err)
	}
	if len(sig) != 2+65*2 {
		t.Errorf("signature length = %d, want %d", len(sig), 2+65*2)
	}

	payload.Salt = "not-a-number"
	if _, err := s.SignOrder(payload); err == nil {
		t.Error("non-numeric salt should fail")
	}
}

func TestL2HeadersDeterministic(t *testing.T) {
	auth := &HMACAuth{
		Key:        "key-1",
		Secret:     base64.StdEncoding.EncodeToString([]byte("super-secret")),
		Passphrase: "pass",
	}

	h1 := auth.L2HeadersAt(testAddress, "POST", "/order", `{"x":1}`, 1700000000)
	h2 := auth.L2HeadersAt(testAddress, "POST", "/order", `{"x":1}`, 1700000000)
	if h1["POLY_SIGNATURE"] != h2["POLY_SIGNATURE"] {
		t.Error("identical inputs must produce identical signatures")
	}
	if h1["POLY_TIMESTAMP"] != "1700000000" {
		t.Errorf("timestamp header = %s, want 1700000000", h1["POLY_TIMESTAMP"])
	}
	if h1["POLY_ADDRESS"] != testAddress || h1["POLY_API_KEY"] != "key-1" || h1["POLY_PASSPHRASE"] != "pass" {
		t.Errorf("unexpected headers: %v", h1)
	}

	// A different body must change the signature.
	h3 := auth.L2HeadersAt(testAddress, "POST", "/order", `{"x":2}`, 1700000000)
	if h1["POLY_SIGNATURE"] == h3["POLY_SIGNATURE"] {
		t.Error("different bodies must not share a signature")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("decrypted key = %s, want %s", got, testKeyHex)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Error("wrong password should fail decryption")
	}
}

func TestLoadKeyPrecedence(t *testing.T) {
	key, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if key != testKeyHex {
		t.Errorf("key = %s, want prefix stripped", key)
	}

	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Error("empty config should fail")
	}
}
