package auth

import "testing"

func TestHashPassword_SaltedPerCall(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	second, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if first == second {
		t.Fatal("expected different hashes for the same plaintext")
	}
	if first == "hunter22" {
		t.Fatal("hash must not equal the plaintext")
	}
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if err := CheckPassword(hash, "correct-horse"); err != nil {
		t.Errorf("expected matching password to verify, got %v", err)
	}
	if err := CheckPassword(hash, "battery-staple"); err == nil {
		t.Error("expected mismatched password to fail")
	}
}
