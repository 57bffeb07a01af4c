package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openrdap/rdap"
	"golang.org/x/net/publicsuffix"
)

// RDAPName identifies domain registration lookups in logs.
const RDAPName = "RDAP"

// UnknownAge is reported when the registration age cannot be determined.
const UnknownAge = "Auto-Detected"

// DomainAgeLookup reports how long a URL's domain has been registered.
type DomainAgeLookup struct {
	Client  *rdap.Client
	Server  *url.URL // nil uses IANA bootstrap
	Timeout time.Duration
	Limiter Throttle
	Clock   func() time.Time
}

// NewDomainAgeLookup builds a lookup. server may be empty.
func NewDomainAgeLookup(server string, timeout time.Duration, limiter Throttle) (*DomainAgeLookup, error) {
	d := &DomainAgeLookup{
		Client:  &rdap.Client{HTTP: &http.Client{Timeout: timeout}},
		Timeout: timeout,
		Limiter: limiter,
	}
	if strings.TrimSpace(server) != "" {
		u, err := url.Parse(server)
		if err != nil {
			return nil, fmt.Errorf("invalid rdap server url: %w", err)
		}
		d.Server = u
	}
	return d, nil
}

// Lookup returns a humanized registration age such as "3 years".
func (d *DomainAgeLookup) Lookup(ctx context.Context, rawURL string) (string, error) {
	domain, err := RegistrableDomain(rawURL)
	if err != nil {
		return "", err
	}

	endpoint := "rdap"
	if d.Server != nil {
		endpoint = d.Server.Hostname()
	}
	if d.Limiter != nil {
		allowed, wait, err := d.Limiter.Allow(ctx, endpoint)
		if err != nil {
			return "", fmt.Errorf("rate limit state: %w", err)
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s, retry in %s", ErrThrottled, endpoint, wait.Round(time.Second))
		}
		if err := d.Limiter.Record(ctx, endpoint); err != nil {
			return "", fmt.Errorf("rate limit state: %w", err)
		}
	}

	req := rdap.NewDomainRequest(domain)
	if d.Server != nil {
		req = req.WithServer(d.Server)
	}
	if d.Timeout > 0 {
		req.Timeout = d.Timeout
	}
	req = req.WithContext(ctx)

	client := d.Client
	if client == nil {
		client = &rdap.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		var clientErr *rdap.ClientError
		if errors.As(err, &clientErr) && clientErr.Type == rdap.ObjectDoesNotExist {
			return "", fmt.Errorf("%s: %s: %w", RDAPName, domain, ErrNotFound)
		}
		return "", fmt.Errorf("%s: %s: %w", RDAPName, domain, err)
	}

	record, ok := resp.Object.(*rdap.Domain)
	if !ok {
		return "", fmt.Errorf("%s: unexpected response object for %s", RDAPName, domain)
	}
	registered, ok := registrationDate(record.Events)
	if !ok {
		return "", fmt.Errorf("%s: no registration event for %s", RDAPName, domain)
	}
	return HumanizeAge(registered, d.now()), nil
}

func (d *DomainAgeLookup) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

func registrationDate(events []rdap.Event) (time.Time, bool) {
	for _, event := range events {
		if event.Action != "registration" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, event.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RegistrableDomain returns the public suffix plus one label of a URL's
// host, e.g. example.co.uk for https://www.example.co.uk/.
func RegistrableDomain(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	host := strings.Trim(strings.ToLower(u.Hostname()), ".")
	if host == "" || net.ParseIP(host) != nil {
		return "", fmt.Errorf("url %q has no registrable domain", rawURL)
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("url %q has no registrable domain: %w", rawURL, err)
	}
	return domain, nil
}

// HumanizeAge renders the largest whole unit between from and now.
func HumanizeAge(from, now time.Time) string {
	if now.Before(from) {
		return "0 days"
	}
	years := now.Year() - from.Year()
	months := int(now.Month()) - int(from.Month())
	if now.Day() < from.Day() {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}
	switch {
	case years > 0:
		return plural(years, "year")
	case months > 0:
		return plural(months, "month")
	default:
		return plural(int(now.Sub(from).Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
