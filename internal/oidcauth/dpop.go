package oidcauth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// DPoPKey is the client-held ES256 key pair a DPoP proof is bound to
// (spec.md: "DPoP: the OIDC client adds a DPoP proof (ES256/JWK)...").
type DPoPKey struct {
	private *ecdsa.PrivateKey
	public  jwk.Key
}

func NewDPoPKey() (*DPoPKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	pub, err := jwk.PublicKeyOf(priv)
	if err != nil {
		return nil, err
	}
	if err := pub.Set(jwk.AlgorithmKey, jwa.ES256); err != nil {
		return nil, err
	}
	return &DPoPKey{private: priv, public: pub}, nil
}

// Proof builds a DPoP proof JWT for htm/htu, optionally binding it to an
// access token (ath) and a server-issued nonce, per RFC 9449 and
// original_source's dpop_signing_alg_values_supported=[ES256, ES512].
func (k *DPoPKey) Proof(method, url, accessToken, nonce string) (string, error) {
	headers := jws.NewHeaders()
	if err := headers.Set(jws.TypeKey, "dpop+jwt"); err != nil {
		return "", err
	}
	if err := headers.Set(jws.JWKKey, k.public); err != nil {
		return "", err
	}

	now := time.Now()
	claims := map[string]interface{}{
		"jti": uuid.NewString(),
		"htm": method,
		"htu": url,
		"iat": now.Unix(),
	}
	if accessToken != "" {
		sum := sha256.Sum256([]byte(accessToken))
		claims["ath"] = base64.RawURLEncoding.EncodeToString(sum[:])
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwa.ES256, k.private, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// dpopRoundTripper attaches a DPoP proof to every outbound request,
// rewrites Authorization: Bearer to DPoP, and records any DPoP-Nonce
// response header for the proofs of later requests through the same
// client. A request answered with a nonce challenge is not retried.
type dpopRoundTripper struct {
	key   *DPoPKey
	nonce string
	next  http.RoundTripper
}

func newDPoPHTTPClient(key *DPoPKey, initialNonce string) *http.Client {
	return &http.Client{
		Transport: &dpopRoundTripper{key: key, nonce: initialNonce, next: http.DefaultTransport},
	}
}

func (rt *dpopRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	accessToken := bearerToken(req)
	proof, err := rt.key.Proof(req.Method, req.URL.String(), accessToken, rt.nonce)
	if err != nil {
		return nil, err
	}
	req.Header.Set("DPoP", proof)
	if accessToken != "" {
		req.Header.Set("Authorization", "DPoP "+accessToken)
	}

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	if n := resp.Header.Get("DPoP-Nonce"); n != "" {
		rt.nonce = n
	}
	return resp, nil
}

func bearerToken(req *http.Request) string {
	const prefix = "Bearer "
	h := req.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
