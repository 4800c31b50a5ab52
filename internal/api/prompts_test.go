// ABOUTME: Tests for prompt CRUD endpoints
// ABOUTME: Covers visibility, variable extraction, and the mutation authorization matrix

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPrompt(t *testing.T, env *testEnv, bearer string, req CreatePromptRequest) PromptResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/prompts", bearer, req)
	require.Equal(t, http.StatusCreated, rec.Code, "create prompt: %s", rec.Body.String())
	var created PromptResponse
	decode(t, rec, &created)
	return created
}

func TestCreatePromptExtractsMetadata(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "pw", false)
	session := env.sessionFor(t, user.ID)

	created := createPrompt(t, env, session, CreatePromptRequest{
		Title:   "Summarizer",
		Content: "Summarize {{text}} in {{style}} style. Repeat: {{text}}",
		Tags:    []string{"writing"},
	})

	assert.Equal(t, []string{"text", "style"}, created.Variables, "deduped, first-appearance order")
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, user.ID, created.UserID)
	assert.Positive(t, created.WordCount)
	assert.Positive(t, created.CharCount)
}

func TestCreatePromptValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "pw", false)
	session := env.sessionFor(t, user.ID)

	rec := env.do(t, http.MethodPost, "/api/prompts", session, CreatePromptRequest{Content: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/prompts", session, CreatePromptRequest{Title: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromptVisibility(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", "pw", false)
	bob := env.createUser(t, "bob@example.com", "pw", false)
	admin := env.createUser(t, "admin@example.com", "pw", true)

	aliceSession := env.sessionFor(t, alice.ID)
	private := createPrompt(t, env, aliceSession, CreatePromptRequest{
		Title: "secret", Content: "private content", IsPublic: false,
	})
	public := createPrompt(t, env, aliceSession, CreatePromptRequest{
		Title: "open", Content: "public content", IsPublic: true,
	})

	// Owner reads both
	rec := env.do(t, http.MethodGet, "/api/prompts/"+private.ID, aliceSession, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Non-owner cannot read private, even an admin
	for _, u := range []string{env.sessionFor(t, bob.ID), env.sessionFor(t, admin.ID)} {
		rec = env.do(t, http.MethodGet, "/api/prompts/"+private.ID, u, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/prompts/"+public.ID, u, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// Listing shows bob only the public prompt plus his own
	bobSession := env.sessionFor(t, bob.ID)
	createPrompt(t, env, bobSession, CreatePromptRequest{
		Title: "bobs own", Content: "also private", IsPublic: false,
	})

	rec = env.do(t, http.MethodGet, "/api/prompts", bobSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []PromptResponse
	decode(t, rec, &listed)
	require.Len(t, listed, 2)
	for _, p := range listed {
		assert.True(t, p.IsPublic || p.UserID == bob.ID)
	}
}

// Exercises the full mutation matrix: owner always; admin on public only;
// everyone else never. Denials carry the distinguishing reason code.
func TestPromptMutationAuthorization(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", "pw", false)
	bob := env.createUser(t, "bob@example.com", "pw", false)
	admin := env.createUser(t, "admin@example.com", "pw", true)

	aliceSession := env.sessionFor(t, alice.ID)
	bobSession := env.sessionFor(t, bob.ID)
	adminSession := env.sessionFor(t, admin.ID)

	private := createPrompt(t, env, aliceSession, CreatePromptRequest{
		Title: "secret", Content: "private content", IsPublic: false,
	})

	newTitle := "edited"

	// Admin cannot mutate a private resource they do not own
	rec := env.do(t, http.MethodPut, "/api/prompts/"+private.ID, adminSession,
		UpdatePromptRequest{Title: &newTitle})
	require.Equal(t, http.StatusForbidden, rec.Code)
	var denial map[string]string
	decode(t, rec, &denial)
	assert.Equal(t, "private-not-owner", denial["reason"])

	// Owner flips it public
	public := true
	rec = env.do(t, http.MethodPut, "/api/prompts/"+private.ID, aliceSession,
		UpdatePromptRequest{IsPublic: &public})
	require.Equal(t, http.StatusOK, rec.Code)

	// Now the admin's edit goes through
	rec = env.do(t, http.MethodPut, "/api/prompts/"+private.ID, adminSession,
		UpdatePromptRequest{Title: &newTitle})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated PromptResponse
	decode(t, rec, &updated)
	assert.Equal(t, "edited", updated.Title)
	assert.Equal(t, 3, updated.Version, "each update bumps the version")

	// A plain non-owner still cannot, with the other reason code
	rec = env.do(t, http.MethodPut, "/api/prompts/"+private.ID, bobSession,
		UpdatePromptRequest{Title: &newTitle})
	require.Equal(t, http.StatusForbidden, rec.Code)
	decode(t, rec, &denial)
	assert.Equal(t, "public-not-admin-or-owner", denial["reason"])

	// Same matrix applies to delete
	rec = env.do(t, http.MethodDelete, "/api/prompts/"+private.ID, bobSession, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/prompts/"+private.ID, adminSession, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPromptMutationRequiresWritePermission(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "pw", false)
	session := env.sessionFor(t, user.ID)
	readOnly := env.apiTokenFor(t, user.ID, "read")

	prompt := createPrompt(t, env, session, CreatePromptRequest{
		Title: "mine", Content: "body",
	})

	// Read-only token can read...
	rec := env.do(t, http.MethodGet, "/api/prompts/"+prompt.ID, readOnly, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// ...but not create, update, or delete, even as the owner
	rec = env.do(t, http.MethodPost, "/api/prompts", readOnly, CreatePromptRequest{
		Title: "nope", Content: "nope",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	title := "nope"
	rec = env.do(t, http.MethodPut, "/api/prompts/"+prompt.ID, readOnly,
		UpdatePromptRequest{Title: &title})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/prompts/"+prompt.ID, readOnly, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPromptUpdateRecomputesVariables(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "pw", false)
	session := env.sessionFor(t, user.ID)

	prompt := createPrompt(t, env, session, CreatePromptRequest{
		Title: "t", Content: "Hello {{name}}",
	})
	require.Equal(t, []string{"name"}, prompt.Variables)

	content := "Translate {{text}} to {{lang}}"
	rec := env.do(t, http.MethodPut, "/api/prompts/"+prompt.ID, session,
		UpdatePromptRequest{Content: &content})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated PromptResponse
	decode(t, rec, &updated)
	assert.Equal(t, []string{"text", "lang"}, updated.Variables)
}

func TestListPromptsFilters(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "pw", false)
	session := env.sessionFor(t, user.ID)

	createPrompt(t, env, session, CreatePromptRequest{
		Title: "a", Content: "x", Category: "writing", Tags: []string{"blog"},
	})
	createPrompt(t, env, session, CreatePromptRequest{
		Title: "b", Content: "x", Category: "code", Tags: []string{"review"},
	})

	rec := env.do(t, http.MethodGet, "/api/prompts?category=writing", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []PromptResponse
	decode(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "a", listed[0].Title)

	rec = env.do(t, http.MethodGet, "/api/prompts?tag=review", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "b", listed[0].Title)

	rec = env.do(t, http.MethodGet, "/api/prompts?limit=abc", session, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
