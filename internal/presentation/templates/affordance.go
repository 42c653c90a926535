// Package templates provides HTML fragment rendering for render instructions.
package templates

import (
	"html/template"
	"log"
	"strings"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
)

// Pre-parsed fragment templates, one per instruction kind. html/template
// escapes every interpolated value, so snapshot-derived strings cannot
// inject markup.
var (
	avatarTmpl = template.Must(template.New("avatar").Parse(
		`<a class="auth-affordance auth-affordance--avatar" href="{{.Href}}" data-auth-state="{{.State}}">` +
			`{{if .ImageURL}}<img class="auth-affordance__image" src="{{.ImageURL}}" alt="{{.Label}}" width="48" height="48">` +
			`{{else}}<span class="auth-affordance__glyph" aria-hidden="true"></span>{{end}}` +
			`<span class="auth-affordance__name">{{.Label}}</span></a>`))

	actionTmpl = template.Must(template.New("action").Parse(
		`<button class="auth-affordance auth-affordance--action" data-auth-state="{{.State}}" ` +
			`data-auth-action="{{.Action}}" data-route-endpoint="/api/v1/auth/route">{{.Label}}</button>`))

	loadingTmpl = template.Must(template.New("loading").Parse(
		`<button class="auth-affordance auth-affordance--loading" data-auth-state="{{.State}}" disabled>` +
			`{{.Label}}</button>`))
)

// AffordanceRenderer turns render instructions into HTML fragments. It is a
// swappable presentation layer: JSON consumers never touch it.
type AffordanceRenderer struct{}

// NewAffordanceRenderer creates a new affordance fragment renderer.
func NewAffordanceRenderer() *AffordanceRenderer {
	return &AffordanceRenderer{}
}

// Render produces the HTML fragment for a render instruction.
func (r *AffordanceRenderer) Render(instruction *affordance.RenderInstruction) string {
	if instruction == nil {
		return `<!-- missing affordance instruction -->`
	}

	var tmpl *template.Template
	switch instruction.Kind {
	case affordance.KindAvatar:
		tmpl = avatarTmpl
	case affordance.KindAction:
		tmpl = actionTmpl
	default:
		tmpl = loadingTmpl
	}

	var html strings.Builder
	if err := tmpl.Execute(&html, instruction); err != nil {
		log.Printf("ERROR: Failed to execute affordance template for kind %s: %v", instruction.Kind, err)
		return `<!-- error rendering affordance -->`
	}
	return html.String()
}
