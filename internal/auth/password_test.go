package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("hash = %q, want argon2id PHC prefix", hash)
	}

	// Salts are random, so hashing twice must differ.
	again, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == again {
		t.Error("two hashes of the same password are identical, salt is not random")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  bool
	}{
		{"correct password", "hunter2hunter2", hash, true, false},
		{"wrong password", "hunter3hunter3", hash, false, false},
		{"empty password", "", hash, false, false},
		{"malformed hash", "hunter2hunter2", "not-a-phc-string", false, true},
		{"wrong algorithm", "hunter2hunter2", "$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyPassword(tt.password, tt.hash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
