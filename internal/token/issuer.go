package token

import "time"

// Pair bundles a freshly minted access and refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer mints access/refresh token pairs for a subject. It performs no
// store writes; previously issued tokens stay valid until their own expiry.
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an Issuer with the given per-type lifetimes.
func NewIssuer(codec *Codec, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithNow overrides the issuer clock for testing.
func (i *Issuer) WithNow(fn func() time.Time) {
	if fn != nil {
		i.now = fn
	}
}

// Pair mints a brand-new access/refresh pair for the subject.
func (i *Issuer) Pair(subject string) (Pair, error) {
	now := i.now().UTC()

	access, err := i.codec.Encode(Claims{
		Subject:   subject,
		ExpiresAt: now.Add(i.accessTTL),
		Type:      TypeAccess,
	})
	if err != nil {
		return Pair{}, err
	}

	refresh, err := i.codec.Encode(Claims{
		Subject:   subject,
		ExpiresAt: now.Add(i.refreshTTL),
		Type:      TypeRefresh,
	})
	if err != nil {
		return Pair{}, err
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}
