package auth

// ExternalIdentity is a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions,
// and is immutable for the duration of one sign-in attempt.
type ExternalIdentity struct {
	Provider  string // e.g. "google", "auth0"
	SubjectID string // provider-scoped unique subject identifier (sub)
}

// ClaimSet is one flat set of provider-asserted attributes.
type ClaimSet map[string]any

// Callback carries everything the provider integration hands back after a
// completed authentication: the identity plus the three independently
// sourced claim sets the field mapper consumes.
type Callback struct {
	Identity ExternalIdentity
	User     ClaimSet
	Account  ClaimSet
	Profile  ClaimSet
}
