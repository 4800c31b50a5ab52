// ABOUTME: Tests for SQLite token store methods
// ABOUTME: Covers owner scoping, hash lookup, active counting, and usage touches

package store

import (
	"context"
	"testing"
	"time"
)

func TestTokenCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner", false)

	token := &APIToken{
		Name:        "ci",
		Description: "pipeline token",
		TokenHash:   "hash-1",
		UserID:      owner.ID,
		Permissions: []string{"read", "write"},
		IsActive:    true,
	}
	if err := s.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	got, err := s.GetToken(ctx, owner.ID, token.ID)
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if got.Name != "ci" || got.Description != "pipeline token" {
		t.Errorf("GetToken returned %+v", got)
	}
	if len(got.Permissions) != 2 {
		t.Errorf("permissions round-trip failed: %v", got.Permissions)
	}
	if got.ExpiresAt != nil || got.LastUsedAt != nil {
		t.Errorf("nullable times not nil: %+v", got)
	}
}

func TestTokenOwnerScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner", false)
	other := createTestUser(t, s, "other", false)

	token := &APIToken{Name: "t", TokenHash: "h", UserID: owner.ID, IsActive: true}
	if err := s.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	// Reads, updates, and deletes by a non-owner behave as not-found
	if _, err := s.GetToken(ctx, other.ID, token.ID); err != ErrNotFound {
		t.Errorf("GetToken as other = %v, want ErrNotFound", err)
	}

	stolen := *token
	stolen.UserID = other.ID
	stolen.Name = "hijacked"
	if err := s.UpdateToken(ctx, &stolen); err != ErrNotFound {
		t.Errorf("UpdateToken as other = %v, want ErrNotFound", err)
	}

	if err := s.DeleteToken(ctx, other.ID, token.ID); err != ErrNotFound {
		t.Errorf("DeleteToken as other = %v, want ErrNotFound", err)
	}

	// Owner still has it
	if _, err := s.GetToken(ctx, owner.ID, token.ID); err != nil {
		t.Errorf("GetToken as owner failed: %v", err)
	}
}

func TestGetTokenByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner", false)

	token := &APIToken{Name: "t", TokenHash: "find-me", UserID: owner.ID, IsActive: true}
	if err := s.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	got, err := s.GetTokenByHash(ctx, "find-me")
	if err != nil {
		t.Fatalf("GetTokenByHash failed: %v", err)
	}
	if got.ID != token.ID {
		t.Errorf("GetTokenByHash returned id %q, want %q", got.ID, token.ID)
	}

	if _, err := s.GetTokenByHash(ctx, "unknown"); err != ErrNotFound {
		t.Errorf("GetTokenByHash unknown = %v, want ErrNotFound", err)
	}
}

func TestCountActiveTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner", false)

	for i, active := range []bool{true, true, false} {
		token := &APIToken{
			Name:      "t",
			TokenHash: string(rune('a' + i)),
			UserID:    owner.ID,
			IsActive:  active,
		}
		if err := s.CreateToken(ctx, token); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}
	}

	count, err := s.CountActiveTokens(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CountActiveTokens failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountActiveTokens = %d, want 2", count)
	}
}

func TestTouchToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner", false)

	token := &APIToken{Name: "t", TokenHash: "h", UserID: owner.ID, IsActive: true}
	if err := s.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	usedAt := time.Now().UTC().Truncate(time.Second)
	if err := s.TouchToken(ctx, token.ID, usedAt); err != nil {
		t.Fatalf("TouchToken failed: %v", err)
	}
	if err := s.TouchToken(ctx, token.ID, usedAt.Add(time.Minute)); err != nil {
		t.Fatalf("TouchToken failed: %v", err)
	}

	got, err := s.GetToken(ctx, owner.ID, token.ID)
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if got.UsageCount != 2 {
		t.Errorf("usage_count = %d, want 2", got.UsageCount)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(usedAt.Add(time.Minute)) {
		t.Errorf("last_used_at = %v, want %v", got.LastUsedAt, usedAt.Add(time.Minute))
	}
}

func TestListTokens_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner", false)

	older := &APIToken{
		Name:      "older",
		TokenHash: "h1",
		UserID:    owner.ID,
		IsActive:  true,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &APIToken{Name: "newer", TokenHash: "h2", UserID: owner.ID, IsActive: true}
	if err := s.CreateToken(ctx, older); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := s.CreateToken(ctx, newer); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	tokens, err := s.ListTokens(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListTokens failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("ListTokens returned %d tokens, want 2", len(tokens))
	}
	if tokens[0].Name != "newer" {
		t.Errorf("first token = %q, want newest first", tokens[0].Name)
	}
}
