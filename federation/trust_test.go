package federation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commune.social/core/config"
)

func testFederationConfig() *config.Federation {
	return &config.Federation{
		Scheme:         "https",
		Hostname:       "example.com:8536",
		AllowedDomains: []string{"other.tld"},
	}
}

func TestCheckApubID(t *testing.T) {
	cfg := testFederationConfig()

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{
			name: "allowed remote domain",
			id:   "https://other.tld/u/bob",
		},
		{
			name: "local hostname with port",
			id:   "https://example.com:8536/u/alice",
		},
		{
			name: "local hostname without port",
			id:   "https://example.com/u/alice",
		},
		{
			name:    "wrong scheme",
			id:      "http://other.tld/u/bob",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "wrong scheme trumps domain check",
			id:      "ftp://nowhere.tld/u/bob",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "domain not allowed",
			id:      "https://evil.tld/u/mallory",
			wantErr: ErrDomainNotAllowed,
		},
		{
			name:    "no domain",
			id:      "https:///u/nobody",
			wantErr: ErrNoDomain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := url.Parse(tt.id)
			require.NoError(t, err)

			err = CheckApubID(cfg, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckApubIDPortBearingAllowlistEntry(t *testing.T) {
	cfg := &config.Federation{
		Scheme:         "https",
		Hostname:       "example.com",
		AllowedDomains: []string{"other.tld:8536"},
	}

	// ports are stripped from allowlist entries before comparison
	id, err := url.Parse("https://other.tld/u/bob")
	require.NoError(t, err)
	assert.NoError(t, CheckApubID(cfg, id))
}

func TestParseAndCheckApubID(t *testing.T) {
	cfg := testFederationConfig()

	id, err := ParseAndCheckApubID(cfg, "https://other.tld/u/bob")
	require.NoError(t, err)
	assert.Equal(t, "other.tld", id.Hostname())

	_, err = ParseAndCheckApubID(cfg, "://not-a-url")
	assert.ErrorIs(t, err, ErrMalformedActorID)
}

func TestReconcileActorDomain(t *testing.T) {
	cfg := testFederationConfig()

	expected, err := url.Parse("https://other.tld/inbox")
	require.NoError(t, err)

	t.Run("matching expected domain", func(t *testing.T) {
		id, err := ReconcileActorDomain(cfg, "https://other.tld/u/bob", expected)
		require.NoError(t, err)
		assert.Equal(t, "https://other.tld/u/bob", id)
	})

	t.Run("mismatched expected domain", func(t *testing.T) {
		_, err := ReconcileActorDomain(cfg, "https://evil.tld/u/bob", expected)
		assert.ErrorIs(t, err, ErrDomainMismatch)
	})

	t.Run("expected domain skips allowlist", func(t *testing.T) {
		// reconciliation against the delivery context does not consult the
		// allowlist; the inbox pipeline has already authenticated the origin
		notAllowed, err := url.Parse("https://stranger.tld/u/eve")
		require.NoError(t, err)

		id, err := ReconcileActorDomain(cfg, "https://stranger.tld/u/eve", notAllowed)
		require.NoError(t, err)
		assert.Equal(t, "https://stranger.tld/u/eve", id)
	})

	t.Run("no expected domain falls back to trust check", func(t *testing.T) {
		id, err := ReconcileActorDomain(cfg, "https://other.tld/u/bob", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://other.tld/u/bob", id)

		_, err = ReconcileActorDomain(cfg, "https://evil.tld/u/bob", nil)
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
	})
}
