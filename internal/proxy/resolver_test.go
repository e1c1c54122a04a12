package proxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    domain.ProxyPreference
		wantErr bool
	}{
		{in: "", want: domain.ProxyPreference{}},
		{in: "  worker://weur ", want: domain.ProxyPreference{Kind: domain.ProxyNamedChannel, Name: "weur"}},
		{in: "https://relay.example.com/", want: domain.ProxyPreference{Kind: domain.ProxyExplicitEndpoint, URL: "https://relay.example.com/"}},
		{in: "worker://", wantErr: true},
		{in: "https://a.example.com OR worker://weur", wantErr: true},
		{in: "socks5://127.0.0.1:1080", wantErr: true},
		{in: "relay.example.com", wantErr: true},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if c.wantErr {
			require.Error(t, err, c.in)
			assert.Contains(t, err.Error(), "checkProxy")
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(map[string]string{"weur": "https://relay-weur.example.com"})

	ch, err := r.Resolve(domain.MonitorSpec{})
	require.NoError(t, err)
	assert.True(t, ch.Direct())
	assert.Equal(t, domain.PathDirect, ch.Path())

	ch, err = r.Resolve(domain.MonitorSpec{Proxy: domain.ProxyPreference{Kind: domain.ProxyNamedChannel, Name: "weur"}})
	require.NoError(t, err)
	assert.Equal(t, "https://relay-weur.example.com", ch.URL)
	assert.Equal(t, domain.CheckPath("proxy:weur"), ch.Path())

	ch, err = r.Resolve(domain.MonitorSpec{Proxy: domain.ProxyPreference{Kind: domain.ProxyExplicitEndpoint, URL: "https://relay.example.com:8443"}})
	require.NoError(t, err)
	assert.Equal(t, "relay.example.com:8443", ch.Label)

	_, err = r.Resolve(domain.MonitorSpec{Proxy: domain.ProxyPreference{Kind: domain.ProxyNamedChannel, Name: "apac"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProxyUnavailable))
}
