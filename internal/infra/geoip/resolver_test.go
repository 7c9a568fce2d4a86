package geoip

import (
	"errors"
	"testing"
)

func TestNewResolverEmptyPath(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("NewResolver(empty) = %v, %v", r, err)
	}
}

func TestCountryCodeSkipsLocalAddresses(t *testing.T) {
	var r *Resolver
	for _, ip := range []string{"127.0.0.1", "10.1.2.3:5173", "[::1]:8080", "192.168.0.9"} {
		code, err := r.CountryCode(ip)
		if err != nil || code != "" {
			t.Fatalf("CountryCode(%q) = %q, %v", ip, code, err)
		}
	}
}

func TestCountryCodeErrors(t *testing.T) {
	r := &Resolver{}
	if _, err := r.CountryCode("not-an-ip"); err == nil {
		t.Fatal("expected invalid ip error")
	}
	if _, err := r.CountryCode("8.8.8.8:443"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCloseWithoutDatabase(t *testing.T) {
	var r *Resolver
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
