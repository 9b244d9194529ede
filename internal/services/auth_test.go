package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	authrepo "github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos/auth"
	userrepo "github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos/user"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos/testutil"
	authtypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/auth"
	usertypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/user"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/apperr"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/requestdata"
)

func newAuthServiceTest(t *testing.T) (AuthService, string) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	email := uuid.New().String() + "@example.com"
	t.Cleanup(func() {
		db.Unscoped().
			Where("user_id IN (?)", db.Model(&usertypes.User{}).Select("id").Where("email = ?", email)).
			Delete(&authtypes.UserToken{})
		db.Unscoped().Where("email = ?", email).Delete(&usertypes.User{})
	})

	svc := NewAuthService(
		db,
		log,
		userrepo.NewUserRepo(db, log),
		authrepo.NewUserTokenRepo(db, log),
		"test-jwt-secret",
		15*time.Minute,
		24*time.Hour,
	)
	return svc, email
}

func TestAuthServiceRegisterLoginRoundTrip(t *testing.T) {
	svc, email := newAuthServiceTest(t)
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, email, "correct horse battery", "Test User")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.Email != email {
		t.Fatalf("email %q, want %q", u.Email, email)
	}

	if _, err := svc.RegisterUser(ctx, email, "correct horse battery", "Dup"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("duplicate register err = %v, want %v", err, apperr.ErrInvalidArgument)
	}

	access, refresh, err := svc.LoginUser(ctx, email, "correct horse battery")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected both tokens")
	}

	if _, _, err := svc.LoginUser(ctx, email, "wrong password"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("bad password err = %v, want %v", err, apperr.ErrUnauthorized)
	}

	authed, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(authed)
	if rd == nil || rd.UserID != u.ID {
		t.Fatalf("request data = %+v, want user %s", rd, u.ID)
	}
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, email := newAuthServiceTest(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, email, "correct horse battery", "Test User"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	_, refresh, err := svc.LoginUser(ctx, email, "correct horse battery")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	_, rotated, err := svc.RefreshUser(ctx, refresh)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if rotated == refresh {
		t.Fatal("refresh token was not rotated")
	}

	// The consumed token is revoked and cannot be replayed.
	if _, _, err := svc.RefreshUser(ctx, refresh); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("replay err = %v, want %v", err, apperr.ErrUnauthorized)
	}

	if err := svc.LogoutUser(ctx, rotated); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, _, err := svc.RefreshUser(ctx, rotated); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("post-logout err = %v, want %v", err, apperr.ErrUnauthorized)
	}
}

func TestAuthServiceRejectsForgedAccessToken(t *testing.T) {
	svc, _ := newAuthServiceTest(t)
	if _, err := svc.SetContextFromToken(context.Background(), "not-a-jwt"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, apperr.ErrUnauthorized)
	}
}
