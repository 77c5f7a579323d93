// Package auth defines the identity contract the sync layer depends on.
// The actual session management (sign-in, token refresh) is an external
// collaborator; this package only carries what the core needs: who the
// user is and the credential to present to the persistence function.
package auth

// Identity is an authenticated user.
type Identity struct {
	UserID      string
	AccessToken string
}

// Provider supplies the current identity. Current returns false when no
// user is signed in, which puts the sync layer into local-only mode.
type Provider interface {
	Current() (Identity, bool)
}

// StaticProvider is a Provider backed by a fixed identity. Used by the CLI
// (token from config/env) and by tests.
type StaticProvider struct {
	identity Identity
	signedIn bool
}

// NewStaticProvider returns a provider that always reports the given
// identity as signed in.
func NewStaticProvider(userID, accessToken string) *StaticProvider {
	return &StaticProvider{
		identity: Identity{UserID: userID, AccessToken: accessToken},
		signedIn: true,
	}
}

// Anonymous returns a provider with no identity: local-only mode.
func Anonymous() *StaticProvider {
	return &StaticProvider{}
}

// Current implements Provider.
func (p *StaticProvider) Current() (Identity, bool) {
	return p.identity, p.signedIn
}
