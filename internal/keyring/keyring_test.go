package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetAPIToken(t *testing.T) {
	gokeyring.MockInit()

	token := "qf_live_2f9a8b1c"

	if err := SetAPIToken(token); err != nil {
		t.Fatalf("SetAPIToken() failed: %v", err)
	}

	retrieved, err := GetAPIToken()
	if err != nil {
		t.Fatalf("GetAPIToken() failed: %v", err)
	}
	if retrieved != token {
		t.Errorf("GetAPIToken() = %q, want %q", retrieved, token)
	}
}

func TestSetAPITokenEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetAPIToken(""); err == nil {
		t.Error("SetAPIToken(\"\") should return an error")
	}
}

func TestGetAPITokenNotFound(t *testing.T) {
	gokeyring.MockInit()

	_ = DeleteAPIToken()

	if _, err := GetAPIToken(); err != ErrNotFound {
		t.Errorf("GetAPIToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteAPIToken(t *testing.T) {
	gokeyring.MockInit()

	if err := SetAPIToken("qf_test_token"); err != nil {
		t.Fatalf("SetAPIToken() failed: %v", err)
	}

	if err := DeleteAPIToken(); err != nil {
		t.Fatalf("DeleteAPIToken() failed: %v", err)
	}

	if _, err := GetAPIToken(); err != ErrNotFound {
		t.Errorf("After DeleteAPIToken(), GetAPIToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	testConnStr := "postgres://testuser@localhost:5432/testdb?sslmode=disable"

	if err := SetConnectionString(testConnStr); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}

	retrieved, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString() failed: %v", err)
	}
	if retrieved != testConnStr {
		t.Errorf("GetConnectionString() = %q, want %q", retrieved, testConnStr)
	}
}

func TestDeleteConnectionStringNotFound(t *testing.T) {
	gokeyring.MockInit()

	_ = DeleteConnectionString()

	if err := DeleteConnectionString(); err != ErrNotFound {
		t.Errorf("DeleteConnectionString() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false, want true in mock mode")
	}
}
