// ABOUTME: Tests for the API token lifecycle service
// ABOUTME: Covers issuance, hashing, validation failures, caps, and revocation

package token

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return NewService(s), s
}

func createUser(t *testing.T, s *store.SQLiteStore, id string, active bool) *store.User {
	t.Helper()

	user := &store.User{ID: id, Email: id + "@example.com", IsActive: active}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestIssue_ReturnsSecretOnceAndStoresOnlyHash(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{
		Name:        "ci",
		Permissions: []string{"read", "write"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(issued.Secret, auth.APITokenPrefix))
	// pgt_ + base64url(32 bytes) is 4 + 43 characters
	assert.GreaterOrEqual(t, len(issued.Secret), 40)

	// The stored record carries the hash of the plaintext, never the plaintext
	stored, err := s.GetToken(ctx, owner.ID, issued.Token.ID)
	require.NoError(t, err)
	assert.Equal(t, HashSecret(issued.Secret), stored.TokenHash)
	assert.NotContains(t, stored.TokenHash, issued.Secret)
	assert.NotEqual(t, issued.Secret, stored.TokenHash)
}

func TestIssue_InvalidPermission(t *testing.T) {
	svc, s := newTestService(t)
	owner := createUser(t, s, "owner", true)

	_, err := svc.Issue(context.Background(), owner.ID, IssueRequest{
		Name:        "bad",
		Permissions: []string{"read", "superuser"},
	})
	assert.ErrorIs(t, err, ErrInvalidPermissions)
}

func TestIssue_DefaultPermissions(t *testing.T) {
	svc, s := newTestService(t)
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(context.Background(), owner.ID, IssueRequest{Name: "bare"})
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, issued.Token.Permissions)
}

func TestIssue_LimitExceeded(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	for i := 0; i < MaxActiveTokens; i++ {
		_, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t"})
		require.NoError(t, err)
	}

	_, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "eleventh"})
	assert.ErrorIs(t, err, ErrTokenLimit)

	// The over-limit token was not persisted
	tokens, err := s.ListTokens(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, MaxActiveTokens)
}

func TestIssue_InactiveTokensDoNotCountTowardLimit(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t0"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, owner.ID, issued.Token.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	for i := 0; i < MaxActiveTokens; i++ {
		_, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t"})
		require.NoError(t, err)
	}
}

func TestValidate_Success(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	before := time.Now().Add(-time.Second)
	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{
		Name:        "ci",
		Permissions: []string{"read", "write"},
	})
	require.NoError(t, err)

	user, tok, err := svc.Validate(ctx, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, user.ID)
	assert.Equal(t, []string{"read", "write"}, tok.Permissions)

	// Validation touched the usage fields
	stored, err := s.GetToken(ctx, owner.ID, issued.Token.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.True(t, stored.LastUsedAt.After(before), "last_used_at should be at or after issuance")
	assert.Equal(t, 1, stored.UsageCount)
}

func TestValidate_UnknownSecret(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Validate(context.Background(), "pgt_does-not-exist")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	// Insert an already-expired token directly; Issue only produces future expiries
	secret := "pgt_expired-test-secret"
	expiredAt := time.Now().UTC().Add(-time.Hour)
	tok := &store.APIToken{
		Name:      "old",
		TokenHash: HashSecret(secret),
		UserID:    owner.ID,
		IsActive:  true,
		ExpiresAt: &expiredAt,
	}
	require.NoError(t, s.CreateToken(ctx, tok))

	_, _, err := svc.Validate(ctx, secret)
	// Expired must be distinguishable from unknown
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_NoExpiryNeverExpires(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "forever"})
	require.NoError(t, err)
	assert.Nil(t, issued.Token.ExpiresAt)

	_, _, err = svc.Validate(ctx, issued.Secret)
	assert.NoError(t, err)
}

func TestValidate_Inactive(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, owner.ID, issued.Token.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, _, err = svc.Validate(ctx, issued.Secret)
	assert.ErrorIs(t, err, ErrTokenInactive)
}

func TestValidate_InactiveOwner(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "ghost", false)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t"})
	require.NoError(t, err)

	_, _, err = svc.Validate(ctx, issued.Secret)
	assert.ErrorIs(t, err, ErrActorInactive)
	// The dispatcher matches on the auth sentinel to report the account state
	assert.ErrorIs(t, err, auth.ErrActorInactive)
}

func TestUpdate_RenameAndPermissions(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "old-name"})
	require.NoError(t, err)

	newName := "new-name"
	updated, err := svc.Update(ctx, owner.ID, issued.Token.ID, UpdateRequest{
		Name:        &newName,
		Permissions: []string{"read"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-name", updated.Name)
	assert.Equal(t, []string{"read"}, updated.Permissions)
}

func TestUpdate_NotOwned(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)
	createUser(t, s, "other", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t"})
	require.NoError(t, err)

	name := "x"
	_, err = svc.Update(ctx, "other", issued.Token.ID, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevoke_ThenValidateFails(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)

	// End-to-end: issue, validate, revoke, validate again
	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{
		Name:        "ci",
		Permissions: []string{"read", "write"},
	})
	require.NoError(t, err)

	_, _, err = svc.Validate(ctx, issued.Secret)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, owner.ID, issued.Token.ID))

	_, _, err = svc.Validate(ctx, issued.Secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke_NotOwned(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner", true)
	createUser(t, s, "other", true)

	issued, err := svc.Issue(ctx, owner.ID, IssueRequest{Name: "t"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Revoke(ctx, "other", issued.Token.ID), store.ErrNotFound)

	// Token still present for the real owner
	_, err = s.GetToken(ctx, owner.ID, issued.Token.ID)
	assert.NoError(t, err)
}

func TestIssue_ExpiryIsWholeDaysOut(t *testing.T) {
	svc, s := newTestService(t)
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(context.Background(), owner.ID, IssueRequest{
		Name:          "short",
		ExpiresInDays: 7,
	})
	require.NoError(t, err)
	require.NotNil(t, issued.Token.ExpiresAt)

	want := time.Now().UTC().AddDate(0, 0, 7)
	assert.WithinDuration(t, want, *issued.Token.ExpiresAt, time.Minute)
}

func TestMaskedPreview_NeverContainsSecret(t *testing.T) {
	svc, s := newTestService(t)
	owner := createUser(t, s, "owner", true)

	issued, err := svc.Issue(context.Background(), owner.ID, IssueRequest{Name: "t"})
	require.NoError(t, err)

	preview := MaskedPreview(issued.Token)
	assert.True(t, strings.HasPrefix(preview, auth.APITokenPrefix))
	assert.NotContains(t, issued.Secret, preview[len(auth.APITokenPrefix)+3:])
	assert.NotEqual(t, issued.Secret, preview)
}
