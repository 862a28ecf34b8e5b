// Package validation decides whether a raw contact payload is accepted.
//
// Every field is checked on every call and all failures are returned together,
// so a client can highlight each invalid field after a single round trip.
// Validate has no side effects and keeps no state between calls.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	playvalidator "github.com/go-playground/validator/v10"

	"github.com/kataria/backend/internal/model"
)

// Tier selects how many meaningful words a message must contain.
type Tier string

const (
	TierBasic  Tier = "basic"
	TierStrict Tier = "strict"
)

// ParseTier maps a config string to a Tier, defaulting to TierBasic.
func ParseTier(s string) Tier {
	if strings.EqualFold(strings.TrimSpace(s), string(TierStrict)) {
		return TierStrict
	}
	return TierBasic
}

const (
	nameMinLen    = 2
	nameMaxLen    = 50
	emailMaxLen   = 100
	phoneDigits   = 10
	messageMinLen = 10
	messageMaxLen = 500

	userAgentMaxLen      = 500
	referralSourceMaxLen = 200
	ipAddressMaxLen      = 50

	spamRunLength = 5
)

// Payload keys understood by the validator.
const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldMessage        = "message"
	FieldUserAgent      = "userAgent"
	FieldReferralSource = "referralSource"
	FieldIPAddress      = "ipAddress"
)

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z\s'-]+$`)
	nonDigit         = regexp.MustCompile(`\D`)
	nonWordOrSpace   = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	urlPattern       = regexp.MustCompile(`(?i)https?://`)
	moneyPattern     = regexp.MustCompile(`\$\d+`)
	spamPhrases      = regexp.MustCompile(`(?i)click here|free money|urgent`)
	sequentialPhones = []string{"0123", "1234", "2345", "3456", "4567", "5678", "6789"}
)

// Validator applies the contact form rules.
type Validator struct {
	tier  Tier
	email *playvalidator.Validate
}

// New creates a Validator for the given message tier.
func New(tier Tier) *Validator {
	if tier != TierStrict {
		tier = TierBasic
	}
	return &Validator{tier: tier, email: playvalidator.New()}
}

// Tier reports the message tier in effect.
func (v *Validator) Tier() Tier { return v.tier }

// Validate returns the normalized submission, without identifier or timestamp,
// or model.ValidationErrors describing every field that failed.
func (v *Validator) Validate(raw model.RawSubmission) (*model.ContactSubmission, error) {
	var errs model.ValidationErrors
	out := &model.ContactSubmission{}

	check := func(field, value string, fn func(string) (string, string)) string {
		normalized, msg := fn(value)
		if msg != "" {
			errs = append(errs, model.FieldError{Field: field, Message: msg})
		}
		return normalized
	}

	out.Name = check(FieldName, raw[FieldName], v.name)
	out.Email = check(FieldEmail, raw[FieldEmail], v.emailAddress)
	out.Phone = check(FieldPhone, raw[FieldPhone], v.phone)
	out.Message = check(FieldMessage, raw[FieldMessage], v.message)

	out.UserAgent = Sanitize(raw[FieldUserAgent], userAgentMaxLen)
	out.ReferralSource = Sanitize(raw[FieldReferralSource], referralSourceMaxLen)
	out.IPAddress = Sanitize(raw[FieldIPAddress], ipAddressMaxLen)

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (v *Validator) name(value string) (string, string) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", "Name is required"
	}
	if n := utf8.RuneCountInString(s); n < nameMinLen || n > nameMaxLen {
		return s, "Name must be between 2 and 50 characters"
	}
	if !namePattern.MatchString(s) {
		return s, "Name can only contain letters, spaces, hyphens, and apostrophes"
	}
	for _, word := range strings.Fields(s) {
		if utf8.RuneCountInString(word) < 2 {
			return s, "Please enter a valid full name"
		}
	}
	return s, ""
}

func (v *Validator) emailAddress(value string) (string, string) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", "Email is required"
	}
	if !v.plausibleEmail(s) {
		return s, "Please enter a valid email address"
	}
	s = strings.ToLower(s)
	if utf8.RuneCountInString(s) > emailMaxLen {
		return s, "Email must not exceed 100 characters"
	}
	return s, ""
}

// plausibleEmail requires a syntactically valid address whose domain has at
// least one dot, which is stricter than RFC 5322 but matches what the forms accept.
func (v *Validator) plausibleEmail(s string) bool {
	if err := v.email.Var(s, "email"); err != nil {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at < 1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

func (v *Validator) phone(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "", "Phone is required"
	}
	digits := nonDigit.ReplaceAllString(value, "")
	if len(digits) != phoneDigits {
		return digits, "Phone number must be exactly 10 digits"
	}
	if strings.Count(digits, digits[:1]) == phoneDigits {
		return digits, "Please enter a valid phone number"
	}
	for _, run := range sequentialPhones {
		if strings.Contains(digits, run) {
			return digits, "Please enter a valid phone number"
		}
	}
	return digits, ""
}

func (v *Validator) message(value string) (string, string) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", "Message is required"
	}
	if n := utf8.RuneCountInString(s); n < messageMinLen || n > messageMaxLen {
		return s, "Message must be between 10 and 500 characters"
	}
	minWords := 1
	if v.tier == TierStrict {
		minWords = 3
	}
	if MeaningfulWords(s) < minWords {
		if minWords == 1 {
			return s, "Message must contain at least 1 meaningful word"
		}
		return s, fmt.Sprintf("Message must contain at least %d meaningful words", minWords)
	}
	if IsSpam(s) {
		return s, "Message appears to contain spam content"
	}
	return s, ""
}

// MeaningfulWords counts whitespace-separated tokens left after punctuation is
// removed. Letters and digits of any script count, including combining marks
// such as Devanagari vowel signs.
func MeaningfulWords(s string) int {
	return len(strings.Fields(nonWordOrSpace.ReplaceAllString(s, "")))
}

// IsSpam reports whether s trips any of the fixed spam heuristics.
func IsSpam(s string) bool {
	return hasRepeatedRun(s, spamRunLength) ||
		urlPattern.MatchString(s) ||
		moneyPattern.MatchString(s) ||
		spamPhrases.MatchString(s)
}

// hasRepeatedRun reports whether any character, compared case-insensitively,
// appears n or more times in a row. Line breaks never count toward a run.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	count := 0
	for _, r := range s {
		r = unicode.ToLower(r)
		if r == '\n' || r == '\r' {
			count = 0
			continue
		}
		if count > 0 && r == prev {
			count++
		} else {
			prev, count = r, 1
		}
		if count >= n {
			return true
		}
	}
	return false
}

// Sanitize trims s, removes angle brackets and truncates it to max runes.
func Sanitize(s string, max int) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	if utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}
