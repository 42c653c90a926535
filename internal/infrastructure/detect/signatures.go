// Package detect classifies the visitor's browsing environment so the flow
// router can avoid opening auth flows inside restrictive embedded webviews.
package detect

import "strings"

// Signature identifies a known embedded webview by a user agent token.
type Signature struct {
	Name  string // host application name, for diagnostics
	Token string // substring to look for in the user agent
}

// Catalog lists the known in-app browser signatures. Matching is a plain
// substring test; order matters only for which name wins in diagnostics.
var Catalog = []Signature{
	{Name: "Instagram", Token: "Instagram"},
	{Name: "Facebook", Token: "FBAN"},
	{Name: "Facebook", Token: "FBAV"},
	{Name: "Facebook", Token: "FB_IAB"},
	{Name: "TikTok", Token: "BytedanceWebview"},
	{Name: "TikTok", Token: "musical_ly"},
	{Name: "Snapchat", Token: "Snapchat"},
	{Name: "LinkedIn", Token: "LinkedInApp"},
	{Name: "Pinterest", Token: "Pinterest"},
	{Name: "Twitter", Token: "Twitter"},
	{Name: "Line", Token: "Line/"},
	{Name: "KakaoTalk", Token: "KAKAOTALK"},
	{Name: "WeChat", Token: "MicroMessenger"},
	{Name: "WeChat", Token: "WeChat"},
	{Name: "QQ", Token: "QQ/"},
	{Name: "Weibo", Token: "Weibo"},
	{Name: "GoogleApp", Token: "GSA"},
}

// MatchSignature returns the first catalog signature present in the user
// agent. Diagnostics only; classification goes through Detector.Classify.
func MatchSignature(userAgent string) (Signature, bool) {
	for _, sig := range Catalog {
		if strings.Contains(userAgent, sig.Token) {
			return sig, true
		}
	}
	return Signature{}, false
}
