package mercadopago

import (
	"errors"
	"testing"
)

func TestSignatureRoundTrip(t *testing.T) {
	header := Sign("secret", "123456", "req-1", "1704908010")
	if err := VerifySignature("secret", header, "123456", "req-1"); err != nil {
		t.Fatalf("expected valid signature: %v", err)
	}
	if err := VerifySignature("other", header, "123456", "req-1"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature with wrong secret, got %v", err)
	}
	if err := VerifySignature("secret", header, "999", "req-1"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for other payment, got %v", err)
	}
}

func TestSignatureManifestSkipsEmptyParts(t *testing.T) {
	if got := SignatureManifest("ABC", "", "10"); got != "id:abc;ts:10;" {
		t.Fatalf("unexpected manifest %q", got)
	}
}

func TestVerifySignatureRejectsMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "ts=1", "v1=abc", "ts=1,v1=zz"} {
		if err := VerifySignature("secret", header, "1", ""); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("header %q: expected invalid signature, got %v", header, err)
		}
	}
}
