package token

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	codec, err := NewCodec([]byte(secret), "HS256")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	exp := time.Now().Add(time.Hour).Truncate(time.Second).UTC()

	raw, err := codec.Encode(Claims{Subject: "user-1", ExpiresAt: exp, Type: TypeAccess})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("expiry = %v, want %v", claims.ExpiresAt, exp)
	}
	if claims.Type != TypeAccess {
		t.Errorf("type = %q, want %q", claims.Type, TypeAccess)
	}
}

func TestCodecRejectsUnsupportedAlgorithm(t *testing.T) {
	if _, err := NewCodec([]byte("secret"), "RS256"); err == nil {
		t.Fatal("expected error for RS256")
	}
	if _, err := NewCodec(nil, "HS256"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestCodecWrongKeyIsInvalidSignature(t *testing.T) {
	codec := newTestCodec(t, "key-one")
	other := newTestCodec(t, "key-two")

	raw, err := codec.Encode(Claims{Subject: "user-1", ExpiresAt: time.Now().Add(time.Hour), Type: TypeAccess})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := other.Decode(raw); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestCodecMalformedInput(t *testing.T) {
	codec := newTestCodec(t, "test-secret")

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		if _, err := codec.Decode(raw); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestCodecDecodesExpiredToken(t *testing.T) {
	codec := newTestCodec(t, "test-secret")

	raw, err := codec.Encode(Claims{
		Subject:   "user-1",
		ExpiresAt: time.Now().Add(-time.Hour),
		Type:      TypeRefresh,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode expired token: %v", err)
	}
	if claims.Type != TypeRefresh {
		t.Errorf("type = %q, want %q", claims.Type, TypeRefresh)
	}
}

func TestIssuerPair(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	issuer := NewIssuer(codec, 30*time.Minute, 168*time.Hour)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer.WithNow(func() time.Time { return fixed })

	pair, err := issuer.Pair("subject-1")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}

	access, err := codec.Decode(pair.AccessToken)
	if err != nil {
		t.Fatalf("decode access: %v", err)
	}
	if access.Type != TypeAccess {
		t.Errorf("access type = %q", access.Type)
	}
	if want := fixed.Add(30 * time.Minute); !access.ExpiresAt.Equal(want) {
		t.Errorf("access expiry = %v, want %v", access.ExpiresAt, want)
	}

	refresh, err := codec.Decode(pair.RefreshToken)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if refresh.Type != TypeRefresh {
		t.Errorf("refresh type = %q", refresh.Type)
	}
	if want := fixed.Add(168 * time.Hour); !refresh.ExpiresAt.Equal(want) {
		t.Errorf("refresh expiry = %v, want %v", refresh.ExpiresAt, want)
	}
	if refresh.Subject != "subject-1" || access.Subject != "subject-1" {
		t.Errorf("subjects = %q, %q", access.Subject, refresh.Subject)
	}
}
