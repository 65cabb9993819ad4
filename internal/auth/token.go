package auth // package auth implements the session issuer: JWT minting, verification, revocation and rotation

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// Fixed issuer/audience pair embedded in every token and validated on
// verify. Tokens minted by anything else are rejected even when signed
// with the right secret.
const (
	TokenIssuer   = "code-cloud-agents"
	TokenAudience = "cloud-agents-api"
)

// TokenKind selects which secret and claim shape a token is checked
// against. Access and refresh tokens are signed with distinct secrets so
// one can never be presented in place of the other.
type TokenKind int

const (
	KindAccess TokenKind = iota
	KindRefresh
)

// TokenPayload is the claims bundle carried by both token kinds. Email
// is optional and round-trips as absent when empty.
type TokenPayload struct {
	UserID string
	Role   string
	Email  string
}

// TokenPair is the result of issuing or rotating a session. ExpiresIn is
// the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Issuer mints and verifies token pairs. It is stateless apart from the
// injected revocation store; all instances sharing the same secrets and
// store are interchangeable.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	revoked       TokenStore
}

// NewIssuer builds an Issuer from the two signing secrets and the token
// lifetimes. The store receives every revoked token string.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store TokenStore) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		revoked:       store,
	}
}

// Issue signs a new access+refresh pair for the payload. The refresh
// token embeds a random jti so two pairs issued for the same payload in
// the same second still differ, which single-use rotation relies on.
func (i *Issuer) Issue(payload TokenPayload) (TokenPair, error) {
	now := time.Now().UTC()

	access, err := i.sign(payload, KindAccess, now, "")
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(payload, KindRefresh, now, uuid.NewString())
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(i.accessTTL.Seconds()),
	}, nil
}

// Verify parses and validates a token of the given kind. Every failure
// mode (bad signature, wrong secret, expired, malformed, wrong
// issuer/audience, revoked) collapses into a nil result; callers branch
// on presence, not on cause.
func (i *Issuer) Verify(ctx context.Context, token string, kind TokenKind) *TokenPayload {
	if token == "" {
		return nil
	}
	if i.revoked != nil && i.revoked.IsRevoked(ctx, token) {
		return nil
	}

	secret := i.accessSecret
	if kind == KindRefresh {
		secret = i.refreshSecret
	}
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens using a different algorithm family.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil
	}
	email, _ := claims["email"].(string)
	return &TokenPayload{UserID: sub, Role: role, Email: email}
}

// Revoke adds the literal token string to the revocation set. The entry
// is kept for the token's remaining lifetime when that can be read from
// the (unverified) claims, otherwise for the maximum refresh lifetime.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	if i.revoked == nil || token == "" {
		return nil
	}
	ttl := i.refreshTTL
	if tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err == nil {
		if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
			if remaining := time.Until(exp.Time); remaining > 0 {
				ttl = remaining
			}
		}
	}
	return i.revoked.Revoke(ctx, token, ttl)
}

// Rotate verifies a refresh token, revokes it, and issues a brand new
// pair for the same payload. The revocation happens before the new pair
// is minted so a replay of the old token fails even if issuing errors
// out. Returns nil on any verification failure, including reuse of an
// already-rotated token.
func (i *Issuer) Rotate(ctx context.Context, refreshToken string) (*TokenPair, *TokenPayload) {
	payload := i.Verify(ctx, refreshToken, KindRefresh)
	if payload == nil {
		return nil, nil
	}
	if err := i.Revoke(ctx, refreshToken); err != nil {
		return nil, nil
	}
	pair, err := i.Issue(*payload)
	if err != nil {
		return nil, nil
	}
	return &pair, payload
}

// sign builds the claims map and signs it with the secret for kind.
func (i *Issuer) sign(payload TokenPayload, kind TokenKind, now time.Time, jti string) (string, error) {
	ttl := i.accessTTL
	secret := i.accessSecret
	if kind == KindRefresh {
		ttl = i.refreshTTL
		secret = i.refreshSecret
	}
	claims := jwt.MapClaims{
		"sub":  payload.UserID,
		"role": payload.Role,
		"iss":  TokenIssuer,
		"aud":  TokenAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if payload.Email != "" {
		claims["email"] = payload.Email
	}
	if jti != "" {
		claims["jti"] = jti
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
