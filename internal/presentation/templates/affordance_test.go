package templates

import (
	"testing"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/stretchr/testify/assert"
)

func TestRenderAvatarFragment(t *testing.T) {
	renderer := NewAffordanceRenderer()

	html := renderer.Render(&affordance.RenderInstruction{
		Kind:     affordance.KindAvatar,
		State:    affordance.CachedLoggedIn,
		Label:    "Ada",
		ImageURL: "/api/v1/avatar/tok123",
		Href:     "/dashboard",
	})

	assert.Contains(t, html, `auth-affordance--avatar`)
	assert.Contains(t, html, `href="/dashboard"`)
	assert.Contains(t, html, `data-auth-state="cached_logged_in"`)
	assert.Contains(t, html, `src="/api/v1/avatar/tok123"`)
	assert.Contains(t, html, `<span class="auth-affordance__name">Ada</span>`)
}

func TestRenderAvatarFragmentWithoutImageUsesGlyph(t *testing.T) {
	renderer := NewAffordanceRenderer()

	html := renderer.Render(&affordance.RenderInstruction{
		Kind:  affordance.KindAvatar,
		State: affordance.CachedLoggedIn,
		Label: "Ada",
		Href:  "/dashboard",
	})

	assert.Contains(t, html, `auth-affordance__glyph`)
	assert.NotContains(t, html, `<img`)
}

func TestRenderActionFragment(t *testing.T) {
	renderer := NewAffordanceRenderer()

	html := renderer.Render(&affordance.RenderInstruction{
		Kind:   affordance.KindAction,
		State:  affordance.CachedLoggedOut,
		Label:  "Sign In",
		Action: affordance.ActionSignIn,
	})

	assert.Contains(t, html, `auth-affordance--action`)
	assert.Contains(t, html, `data-auth-state="cached_logged_out"`)
	assert.Contains(t, html, `data-auth-action="signin"`)
	assert.Contains(t, html, `data-route-endpoint="/api/v1/auth/route"`)
	assert.Contains(t, html, `>Sign In</button>`)
	assert.NotContains(t, html, "disabled")
}

func TestRenderLoadingFragmentIsDisabled(t *testing.T) {
	renderer := NewAffordanceRenderer()

	html := renderer.Render(&affordance.RenderInstruction{
		Kind:  affordance.KindLoading,
		State: affordance.Unknown,
		Label: "Sign Up",
	})

	assert.Contains(t, html, `auth-affordance--loading`)
	assert.Contains(t, html, `data-auth-state="unknown"`)
	assert.Contains(t, html, "disabled")
}

func TestRenderEscapesSnapshotValues(t *testing.T) {
	renderer := NewAffordanceRenderer()

	html := renderer.Render(&affordance.RenderInstruction{
		Kind:  affordance.KindAvatar,
		State: affordance.CachedLoggedIn,
		Label: `<script>alert("x")</script>`,
		Href:  "/dashboard",
	})

	assert.NotContains(t, html, "<script>")
}

func TestRenderNilInstruction(t *testing.T) {
	renderer := NewAffordanceRenderer()
	assert.Equal(t, `<!-- missing affordance instruction -->`, renderer.Render(nil))
}
