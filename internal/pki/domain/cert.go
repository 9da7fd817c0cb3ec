package domain

import "time"

// CertFields are the subject attributes read back from a certificate.
type CertFields struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	State              string
	Locality           string
	Email              string
}

// CertInfo summarizes a certificate for display.
type CertInfo struct {
	Subject   string
	Issuer    string
	Serial    string
	NotBefore time.Time
	NotAfter  time.Time
}

// ValidAt reports whether t falls inside the certificate validity window.
func (c *CertInfo) ValidAt(t time.Time) bool {
	return !t.Before(c.NotBefore) && !t.After(c.NotAfter)
}
