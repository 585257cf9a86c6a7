// Package auth loads exchange credentials: account login, application key
// and the optional client certificate used for non-interactive login.
package auth

import (
	"crypto/tls"
	"fmt"
	"net/url"
)

// Header names carried on every exchange request.
const (
	HeaderAppKey  = "X-Application"
	HeaderSession = "X-Authentication"
)

// Credentials holds everything needed to open a session.
type Credentials struct {
	Username string
	Password string
	AppKey   string // Application key from the developer portal

	// Certificate enables certificate login when set.
	Certificate *tls.Certificate
}

// LoadCredentials validates the account fields and loads the client
// certificate when both paths are given.
func LoadCredentials(username, password, appKey, certFile, keyFile string) (*Credentials, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if appKey == "" {
		return nil, fmt.Errorf("app key is required")
	}

	creds := &Credentials{
		Username: username,
		Password: password,
		AppKey:   appKey,
	}

	if certFile == "" && keyFile == "" {
		return creds, nil
	}
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("cert file and key file must be set together")
	}

	cert, err := LoadCertificate(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	creds.Certificate = cert

	return creds, nil
}

// LoadCertificate loads a PEM certificate/key pair.
func LoadCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return &cert, nil
}

// CertLogin reports whether certificate login is available.
func (c *Credentials) CertLogin() bool {
	return c.Certificate != nil
}

// TLSConfig returns a client TLS config presenting the certificate, or nil
// when no certificate is loaded.
func (c *Credentials) TLSConfig() *tls.Config {
	if c.Certificate == nil {
		return nil
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*c.Certificate},
		MinVersion:   tls.VersionTLS12,
	}
}

// LoginForm returns the form body for a login request.
func (c *Credentials) LoginForm() url.Values {
	return url.Values{
		"username": {c.Username},
		"password": {c.Password},
	}
}

// Headers returns the authentication headers for a request. An empty
// session token sends only the application key.
func (c *Credentials) Headers(sessionToken string) map[string]string {
	h := map[string]string{HeaderAppKey: c.AppKey}
	if sessionToken != "" {
		h[HeaderSession] = sessionToken
	}
	return h
}
