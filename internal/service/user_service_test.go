package service

import (
	"context"
	"errors"
	"testing"

	"github.com/folio/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(setupTestDB(t)).WithPasswordCost(bcrypt.MinCost)
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: " Reader_1 ", Email: "reader@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != string(auth.RoleReader) || user.Username != "reader_1" || user.Name != "reader_1" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Password == "correct-horse" {
		t.Fatalf("password must be hashed")
	}

	if _, err := svc.Register(ctx, RegisterInput{Username: "reader_1", Email: "other@example.com", Password: "correct-horse"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	for _, login := range []string{"reader_1", "READER@example.com"} {
		got, err := svc.Authenticate(ctx, login, "correct-horse")
		if err != nil || got.ID != user.ID {
			t.Fatalf("authenticate %q: %+v, %v", login, got, err)
		}
	}
	if _, err := svc.Authenticate(ctx, "reader_1", "wrong-password"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost", "correct-horse"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := newTestUserService(t)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{name: "short username", input: RegisterInput{Username: "ab", Email: "a@example.com", Password: "long-enough"}},
		{name: "bad username", input: RegisterInput{Username: "has space", Email: "a@example.com", Password: "long-enough"}},
		{name: "bad email", input: RegisterInput{Username: "valid", Email: "nope", Password: "long-enough"}},
		{name: "short password", input: RegisterInput{Username: "valid", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUserService_EnsureAdminIsIdempotent(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	input := RegisterInput{Username: "admin", Email: "admin@example.com", Password: "admin-password"}
	first, created, err := svc.EnsureAdmin(ctx, input)
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got created=%v err=%v", created, err)
	}
	second, created, err := svc.EnsureAdmin(ctx, input)
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("expected existing admin to be reused, got %+v created=%v err=%v", second, created, err)
	}

	admin, err := svc.FirstAdmin(ctx)
	if err != nil || admin.ID != first.ID {
		t.Fatalf("first admin: %+v, %v", admin, err)
	}
}

func TestUserService_SetRole(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	admin, _, err := svc.EnsureAdmin(ctx, RegisterInput{Username: "admin", Email: "admin@example.com", Password: "admin-password"})
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	reader, err := svc.Register(ctx, RegisterInput{Username: "reader", Email: "reader@example.com", Password: "reader-password"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	adminP := auth.Principal{UserID: admin.ID, Role: auth.RoleAdmin}
	editorP := auth.Principal{UserID: 99, Role: auth.RoleEditor}

	if _, err := svc.SetRole(ctx, editorP, reader.ID, "AUTHOR"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for editor, got %v", err)
	}
	if _, err := svc.SetRole(ctx, adminP, reader.ID, "OWNER"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
	if _, err := svc.SetRole(ctx, adminP, admin.ID, "READER"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self demotion, got %v", err)
	}

	updated, err := svc.SetRole(ctx, adminP, reader.ID, "editor")
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if updated.Role != string(auth.RoleEditor) {
		t.Fatalf("expected EDITOR, got %s", updated.Role)
	}
	if _, err := svc.SetRole(ctx, adminP, 9999, "EDITOR"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
