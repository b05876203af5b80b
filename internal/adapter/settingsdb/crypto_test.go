package settingsdb

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := deriveKey("test-secret")
	plaintext := []byte("sk-super-secret-key")

	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}

	got, err := decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestEncryptUsesRandomNonce(t *testing.T) {
	key := deriveKey("test-secret")

	a, err := encrypt([]byte("same"), key)
	if err != nil {
		t.Fatal(err)
	}
	b, err := encrypt([]byte("same"), key)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same plaintext are identical")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	key := deriveKey("test-secret")

	ciphertext, err := encrypt([]byte("payload"), key)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff

	if _, err := decrypt(ciphertext, key); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	ciphertext, err := encrypt([]byte("payload"), deriveKey("secret-a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decrypt(ciphertext, deriveKey("secret-b")); err == nil {
		t.Fatal("expected error for wrong key")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	if _, err := decrypt([]byte("short"), deriveKey("s")); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
