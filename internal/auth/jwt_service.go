package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
const DefaultAccessTokenTTL = 12 * time.Hour

// PartnerAssertionTTL is the vendor-mandated lifetime of partner assertions.
const PartnerAssertionTTL = 15 * time.Minute

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims represents the custom claims embedded in simulator access tokens.
type Claims struct {
	UserID uint `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// PartnerClaims describes the vendor-style assertion shape: the token is
// signed with the partner API key and identifies the user by the partner
// customer id in the subject.
type PartnerClaims struct {
	PartnerID         string
	PartnerDomain     string
	PartnerCustomerID string
}

// JWTService issues and validates both token shapes accepted by the API.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// GenerateAccessToken issues a signed JWT for the supplied user.
func (s *JWTService) GenerateAccessToken(userID uint) (string, error) {
	if userID == 0 {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a simulator access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.UserID == 0 {
		return nil, errors.New("jwt: missing user id claim")
	}

	return &claims, nil
}

// MintPartnerAssertion produces the vendor-style short-lived assertion: signed
// with the partner API key, issuer set to the partner id, audience to the
// partner domain, and subject to the partner customer id. The same shape is
// used to authenticate against the real vendor during migration runs.
func MintPartnerAssertion(apiKey, partnerID, partnerDomain, pcid string, now time.Time) (string, error) {
	if apiKey == "" {
		return "", errors.New("jwt: partner api key is required")
	}
	if pcid == "" {
		return "", errors.New("jwt: partner customer id is required")
	}

	claims := jwt.RegisteredClaims{
		Issuer:    partnerID,
		Audience:  jwt.ClaimStrings{partnerDomain},
		Subject:   pcid,
		ExpiresAt: jwt.NewNumericDate(now.Add(PartnerAssertionTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(apiKey))
	if err != nil {
		return "", fmt.Errorf("jwt: sign partner assertion: %w", err)
	}

	return signed, nil
}

// ValidatePartnerAssertion verifies a vendor-style assertion against the
// partner API key and expected partner identity, returning the partner claims.
func ValidatePartnerAssertion(tokenString, apiKey, partnerID, partnerDomain string, now func() time.Time) (*PartnerClaims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}
	if apiKey == "" {
		return nil, errors.New("jwt: partner api key is not configured")
	}
	if now == nil {
		now = time.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(apiKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse partner assertion: %w", err)
	}

	if partnerID != "" && claims.Issuer != partnerID {
		return nil, errors.New("jwt: assertion issuer does not match partner id")
	}

	if partnerDomain != "" {
		matched := false
		for _, aud := range claims.Audience {
			if aud == partnerDomain {
				matched = true
				break
			}
		}
		if !matched {
			return nil, errors.New("jwt: assertion audience does not match partner domain")
		}
	}

	if claims.Subject == "" {
		return nil, errors.New("jwt: assertion subject is empty")
	}

	return &PartnerClaims{
		PartnerID:         claims.Issuer,
		PartnerDomain:     partnerDomain,
		PartnerCustomerID: claims.Subject,
	}, nil
}
