package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of an access token. There is no refresh.
const TokenTTL = time.Hour

// Claims is the identity snapshot embedded in an access token. The subject
// is the internal user id; exactly one of PatientID and DoctorID is set,
// matching Role.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
	DoctorID  string `json:"doctor_id,omitempty"`
}

// InternalID returns the store identity of the user the token was issued to.
func (c *Claims) InternalID() string {
	return c.Subject
}

// PublicID returns the role-scoped identifier carried by the claim.
func (c *Claims) PublicID() string {
	switch c.Role {
	case RolePatient:
		return c.PatientID
	case RoleDoctor:
		return c.DoctorID
	default:
		return ""
	}
}

// Identity is what the issuer needs to know about a user to sign a token.
type Identity struct {
	InternalID string
	Role       Role
	PublicID   string
}

// TokenIssuer signs and verifies HS256 access tokens with a server secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: TokenTTL, now: time.Now}
}

// Issue builds the claim for id and returns the signed token string.
func (i *TokenIssuer) Issue(id Identity) (string, *Claims, error) {
	if !id.Role.Valid() {
		return "", nil, fmt.Errorf("issue token: invalid role %q", id.Role)
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.InternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Role: id.Role,
	}
	switch id.Role {
	case RolePatient:
		claims.PatientID = id.PublicID
	case RoleDoctor:
		claims.DoctorID = id.PublicID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

var ErrInvalidRoleClaim = errors.New("token carries an unknown role")

// Verify checks signature, algorithm and expiry and returns the claim.
func (i *TokenIssuer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidRoleClaim
	}
	return claims, nil
}
