package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
)

// CreateTestVerifier creates a verifier configured for E2E testing
// It returns the verifier and the private key to sign test tokens
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)

	// JWKS preloaded with the test key, no network fetch
	testJWKS := auth.NewTestJWKS(publicKey)

	cfg := auth.Config{
		Issuer: "https://test-auth.lifelink-blood.care/realms/test",
	}

	verifier := auth.NewVerifier(cfg, testJWKS)

	return verifier, privateKey
}
