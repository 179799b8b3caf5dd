// Package acl holds the provider adapters: the anti-corruption layer between
// external generative services and the domain.
//
// Two backends implement ports.WisdomProvider, ports.ExplanationProvider and
// ports.IllustrationProvider:
//
//   - [Gemini] calls the Gemini API through google.golang.org/genai, with the
//     SDK's HTTP traffic routed through a [clients.Client].
//   - [Oracle] calls a plain JSON HTTP service through [BaseAdapter].
//
// External DTOs stay unexported. Every failure leaving this package is a
// domain.ProviderError; when the provider was unreachable, rate limited or
// failing server-side, its cause is a domain.UnavailableError.
package acl
