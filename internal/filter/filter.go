// Package filter decides whether an inbound sender looks like human
// correspondence or automated/bulk traffic. It is a business-relevance
// heuristic, not a security control: rejected mail is dropped silently.
package filter

import (
	"regexp"
	"strings"
)

// Predicate reports whether mail from the given address should enter the
// ingestion pipeline. Implementations must be safe for concurrent use.
type Predicate interface {
	Admissible(address string) bool
}

// automatedKeywords is matched against the full address. Mostly no-reply
// variants and the big bulk-sender platforms.
var automatedKeywords = []string{
	"no-reply",
	"noreply",
	"no_reply",
	"donotreply",
	"do-not-reply",
	"notification",
	"notifications",
	"newsletter",
	"mailer-daemon",
	"postmaster",
	"bounce",
	"facebook",
	"facebookmail",
	"twitter",
	"instagram",
	"linkedin",
	"youtube",
	"pinterest",
	"tiktok",
	"amazonses",
	"sendgrid",
	"mailchimp",
	"mailgun",
}

// roleAccounts are generic local-parts that address a function, not a person.
var roleAccounts = map[string]struct{}{
	"info":    {},
	"support": {},
	"admin":   {},
	"billing": {},
	"help":    {},
	"contact": {},
	"sales":   {},
	"service": {},
}

// localPartShape accepts local-parts that plausibly name a human:
// letters, optionally separated by dots/underscores/hyphens/digits.
var localPartShape = regexp.MustCompile(`^[a-z][a-z0-9]*([._-][a-z0-9]+)*$`)

// Heuristic is the default Predicate. The keyword and role lists are
// hand-maintained and produce both false positives and false negatives;
// callers that need different judgment plug in their own Predicate.
type Heuristic struct{}

// NewHeuristic creates the default sender-admissibility predicate.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Admissible reports whether the address looks like a human correspondent.
func (h *Heuristic) Admissible(address string) bool {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return false
	}

	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return false
	}

	localPart := addr[:at]
	domain := addr[at+1:]

	// A domain without a dot is not publicly routable mail.
	if !strings.Contains(domain, ".") {
		return false
	}

	for _, keyword := range automatedKeywords {
		if strings.Contains(addr, keyword) {
			return false
		}
	}

	if _, ok := roleAccounts[localPart]; ok {
		return false
	}

	return localPartShape.MatchString(localPart)
}
