package auth

import "testing"

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	if err != nil {
		t.Fatalf("GenerateOTP() error: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code length = %d, want 6", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Errorf("code %q contains non-digit %q", code, c)
		}
	}

	// Non-positive lengths fall back to the default.
	code, err = GenerateOTP(0)
	if err != nil {
		t.Fatalf("GenerateOTP(0) error: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("default code length = %d, want 6", len(code))
	}
}

func TestHashAndCheckOTP(t *testing.T) {
	hash, err := HashOTP("482913")
	if err != nil {
		t.Fatalf("HashOTP() error: %v", err)
	}
	if hash == "482913" {
		t.Error("hash must not equal the code")
	}
	if !CheckOTP(hash, "482913") {
		t.Error("CheckOTP() must accept the original code")
	}
	if CheckOTP(hash, "000000") {
		t.Error("CheckOTP() must reject a different code")
	}
	if CheckOTP("not-a-bcrypt-hash", "482913") {
		t.Error("CheckOTP() must reject a malformed hash")
	}
}
