package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestNewGeneratedPassword(t *testing.T) {
	first, err := NewGeneratedPassword()
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if len(first) != 8 {
		t.Fatalf("expected 8 characters, got %d", len(first))
	}

	second, err := NewGeneratedPassword()
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct passwords")
	}
}
