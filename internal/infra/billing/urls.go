package billing

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ValidateReturnURL checks that a checkout or portal return URL is an
// absolute https URL whose host sits under a registrable public-suffix
// domain. Rejects bare suffixes like "https://co.uk/done" and local
// hosts, which billing providers refuse as redirect targets.
func ValidateReturnURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("return url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid return url: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("return url must use https, got %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("return url has no host")
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return fmt.Errorf("return url host %q has no registrable domain: %w", host, err)
	}
	if !strings.HasSuffix(host, etld1) {
		return fmt.Errorf("return url host %q is not under %q", host, etld1)
	}
	return nil
}
