package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "pfm-sim"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(42)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "pfm-sim", claims.Issuer)
}

func TestAccessTokenExpires(t *testing.T) {
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := issued
	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		Issuer:         "pfm-sim",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return clock },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(7)
	require.NoError(t, err)

	clock = issued.Add(2 * time.Hour)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	issuerSvc, err := NewJWTService(JWTConfig{Secret: "secret-a", Issuer: "pfm-sim"})
	require.NoError(t, err)
	otherSvc, err := NewJWTService(JWTConfig{Secret: "secret-b", Issuer: "pfm-sim"})
	require.NoError(t, err)

	token, err := issuerSvc.GenerateAccessToken(7)
	require.NoError(t, err)

	_, err = otherSvc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestPartnerAssertionRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assertion, err := MintPartnerAssertion("partner-key", "42", "partner.example.com", "pcid-7", now)
	require.NoError(t, err)

	claims, err := ValidatePartnerAssertion(assertion, "partner-key", "42", "partner.example.com",
		func() time.Time { return now.Add(time.Minute) })
	require.NoError(t, err)
	require.Equal(t, "42", claims.PartnerID)
	require.Equal(t, "pcid-7", claims.PartnerCustomerID)
}

func TestPartnerAssertionExpiresAfterFifteenMinutes(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assertion, err := MintPartnerAssertion("partner-key", "42", "partner.example.com", "pcid-7", now)
	require.NoError(t, err)

	_, err = ValidatePartnerAssertion(assertion, "partner-key", "42", "partner.example.com",
		func() time.Time { return now.Add(PartnerAssertionTTL + time.Minute) })
	require.Error(t, err)
}

func TestPartnerAssertionRejectsMismatchedIdentity(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assertion, err := MintPartnerAssertion("partner-key", "42", "partner.example.com", "pcid-7", now)
	require.NoError(t, err)

	fixed := func() time.Time { return now.Add(time.Minute) }

	_, err = ValidatePartnerAssertion(assertion, "other-key", "42", "partner.example.com", fixed)
	require.Error(t, err)

	_, err = ValidatePartnerAssertion(assertion, "partner-key", "99", "partner.example.com", fixed)
	require.Error(t, err)

	_, err = ValidatePartnerAssertion(assertion, "partner-key", "42", "other.example.com", fixed)
	require.Error(t, err)
}
