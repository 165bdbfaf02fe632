package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalDomain(t *testing.T) {
	tests := []struct {
		hostname string
		want     string
	}{
		{"example.com", "example.com"},
		{"example.com:8536", "example.com"},
		{"localhost:8080", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			f := Federation{Hostname: tt.hostname}
			assert.Equal(t, tt.want, f.LocalDomain())
		})
	}
}

func TestAllowedInstances(t *testing.T) {
	f := Federation{
		Hostname:       "example.com:8536",
		AllowedDomains: []string{"other.tld", "friend.tld"},
	}

	assert.Equal(t, []string{"other.tld", "friend.tld", "example.com"}, f.AllowedInstances())

	// local domain is present even with an empty allowlist
	f = Federation{Hostname: "example.com"}
	assert.Equal(t, []string{"example.com"}, f.AllowedInstances())
}
