package rates

import (
	"crypto/tls"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientFor(t *testing.T) {
	custom := &http.Client{}
	assert.Same(t, custom, clientFor(RetailerDescriptor{SkipTLSVerify: true}, custom))

	verified := clientFor(RetailerDescriptor{}, nil)
	unverified := clientFor(RetailerDescriptor{SkipTLSVerify: true}, nil)
	assert.NotSame(t, verified, unverified)
	assert.Same(t, verified, clientFor(RetailerDescriptor{Key: "other"}, nil))

	tlsConfig := func(c *http.Client) *tls.Config { return c.Transport.(*http.Transport).TLSClientConfig }
	assert.True(t, tlsConfig(unverified).InsecureSkipVerify)
	if cfg := tlsConfig(verified); cfg != nil {
		assert.False(t, cfg.InsecureSkipVerify)
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote(" HTTPS://rates.example.com/a.csv"))
	assert.True(t, isRemote("http://localhost/a.json"))
	assert.False(t, isRemote("data/origin.csv"))
	assert.False(t, isRemote("/srv/http/origin.csv"))
}
