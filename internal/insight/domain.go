package insight

import (
	"net/mail"
	"strings"
)

// DomainClass is the coarse organisation type behind an address domain.
type DomainClass int

const (
	DomainOther DomainClass = iota
	DomainCommercial
	DomainEducational
	DomainNonprofit
)

func (d DomainClass) String() string {
	switch d {
	case DomainCommercial:
		return "commercial"
	case DomainEducational:
		return "educational"
	case DomainNonprofit:
		return "nonprofit"
	default:
		return "other"
	}
}

// Ordered; the first matching suffix wins. ".jp" overlaps the more specific
// Japanese second-level suffixes listed before it.
var domainSuffixes = []struct {
	suffix string
	class  DomainClass
}{
	{".edu", DomainEducational},
	{".ac.jp", DomainEducational},
	{".ac.uk", DomainEducational},
	{".org", DomainNonprofit},
	{".or.jp", DomainNonprofit},
	{".com", DomainCommercial},
	{".co.jp", DomainCommercial},
	{".co.uk", DomainCommercial},
	{".jp", DomainCommercial},
}

var freeWebmail = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"yahoo.co.jp":    {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"live.com":       {},
	"icloud.com":     {},
	"aol.com":        {},
	"proton.me":      {},
}

// ClassifyDomain looks domain up in the suffix table. ambiguous is true when more
// than one suffix matched; the first match is still authoritative.
func ClassifyDomain(domain string) (DomainClass, bool) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return DomainOther, false
	}
	class, matches := DomainOther, 0
	for _, entry := range domainSuffixes {
		if !strings.HasSuffix(domain, entry.suffix) {
			continue
		}
		if matches == 0 {
			class = entry.class
		}
		matches++
	}
	return class, matches > 1
}

// IsFreeWebmail reports whether domain belongs to a consumer mailbox provider.
func IsFreeWebmail(domain string) bool {
	_, ok := freeWebmail[normalizeDomain(domain)]
	return ok
}

// DomainOf extracts the lower-cased domain of an address header such as
// "News <news@example.com>".
func DomainOf(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(from)
	if err != nil {
		return extractDomain(from)
	}
	for _, addr := range addrs {
		if dom := extractDomain(addr.Address); dom != "" {
			return dom
		}
	}
	return ""
}

func extractDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at == -1 {
		return ""
	}
	return normalizeDomain(address[at+1:])
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.Trim(d, ". >")
}
