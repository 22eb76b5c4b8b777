package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kindredhq/kindred/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret")

	input := RegisterInput{
		Email:       "alice@example.com",
		Username:    "alice",
		DisplayName: "Alice",
		Password:    "Sup3rSecret",
	}

	res, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != domain.RoleMember {
		t.Errorf("expected member role, got %s", res.User.Role)
	}
	if res.User.PasswordHash == input.Password {
		t.Error("password stored in plaintext")
	}
	if res.AccessToken == "" {
		t.Fatal("no access token")
	}

	// Token is HS256 with the user id as subject.
	token, err := jwt.Parse(res.AccessToken, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("invalid token: %v", err)
	}
	sub, _ := token.Claims.GetSubject()
	if sub != res.User.ID.String() {
		t.Errorf("token subject %q, want %q", sub, res.User.ID)
	}

	if _, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: input.Password}); err != nil {
		t.Errorf("login with correct password: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: "wrong"}); !errors.Is(err, ErrInvalidCreds) {
		t.Errorf("expected ErrInvalidCreds, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: input.Password}); !errors.Is(err, ErrInvalidCreds) {
		t.Errorf("expected ErrInvalidCreds for unknown email, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret")

	input := RegisterInput{
		Email:       "bob@example.com",
		Username:    "bob",
		DisplayName: "Bob",
		Password:    "Sup3rSecret",
	}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	input.Email = "bob2@example.com"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestPasswordHashFormat(t *testing.T) {
	hash, err := hashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !verifyPassword("Sup3rSecret", hash) {
		t.Error("correct password rejected")
	}
	if verifyPassword("Sup3rSecret2", hash) {
		t.Error("wrong password accepted")
	}
	if verifyPassword("Sup3rSecret", "not-an-encoded-hash") {
		t.Error("malformed hash accepted")
	}

	// Same password, different salt.
	other, err := hashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == other {
		t.Error("expected per-user salt to vary hashes")
	}
}
