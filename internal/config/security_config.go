package config

import (
	"crypto/rand"
	"net/netip"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

type SecurityConfig interface {
	GetCookieSigningKey() []byte
	GetLoginRatePerMinute() int
	GetLoginBurst() int
	GetBootstrapAdminSigla() string
	GetBootstrapAdminRole() string
	GetBootstrapAdminSecret() string
	GetTrustedProxies() []netip.Prefix
}

type Security struct{}

var _ SecurityConfig = Security{}

var (
	ephemeralKey     []byte
	ephemeralKeyOnce sync.Once
)

// GetCookieSigningKey returns COOKIE_SIGNING_KEY, or a per-process random key
// when unset. Cookies signed with a random key do not survive a restart.
func (Security) GetCookieSigningKey() []byte {
	if key := GetEnv("COOKIE_SIGNING_KEY", ""); key != "" {
		return []byte(key)
	}
	ephemeralKeyOnce.Do(func() {
		ephemeralKey = make([]byte, 32)
		if _, err := rand.Read(ephemeralKey); err != nil {
			panic("cookie signing key: " + err.Error())
		}
		log.Warn().Msg("COOKIE_SIGNING_KEY not set, using a random key for this process")
	})
	return ephemeralKey
}

func (Security) GetLoginRatePerMinute() int {
	return GetEnvInt("LOGIN_RATE_PER_MINUTE", 10)
}

func (Security) GetLoginBurst() int {
	return GetEnvInt("LOGIN_BURST", 20)
}

func (Security) GetBootstrapAdminSigla() string {
	return GetEnv("BOOTSTRAP_ADMIN_SIGLA", "")
}

func (Security) GetBootstrapAdminRole() string {
	return GetEnv("BOOTSTRAP_ADMIN_ROLE", "GERENTE")
}

// GetBootstrapAdminSecret may be empty, in which case one is generated
func (Security) GetBootstrapAdminSecret() string {
	return GetEnv("BOOTSTRAP_ADMIN_SECRET", "")
}

// GetTrustedProxies parses TRUSTED_PROXIES, a comma separated list of
// addresses or CIDR prefixes. Only requests arriving from these addresses
// may name the client in X-Forwarded-For. Unparseable entries are skipped.
func (Security) GetTrustedProxies() []netip.Prefix {
	return ParsePrefixes(GetEnvList("TRUSTED_PROXIES", nil))
}

func ParsePrefixes(values []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, v := range values {
		if strings.Contains(v, "/") {
			prefix, err := netip.ParsePrefix(v)
			if err != nil {
				log.Warn().Str("value", v).Msg("ignoring invalid trusted proxy prefix")
				continue
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			log.Warn().Str("value", v).Msg("ignoring invalid trusted proxy address")
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes
}
