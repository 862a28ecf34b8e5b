package validation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kataria/backend/internal/model"
)

func validRaw() model.RawSubmission {
	return model.RawSubmission{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"phone":   "9876543210",
		"message": "Interested in nursery admission for my child",
	}
}

func fieldsOf(err error) []string {
	verrs, ok := err.(model.ValidationErrors)
	if !ok {
		return nil
	}
	var out []string
	for _, fe := range verrs {
		out = append(out, fe.Field)
	}
	return out
}

func TestValidate_AcceptsValidSubmission(t *testing.T) {
	v := New(TierBasic)
	got, err := v.Validate(validRaw())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &model.ContactSubmission{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "9876543210",
		Message: "Interested in nursery admission for my child",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized submission mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_CollectsEveryFieldError(t *testing.T) {
	v := New(TierBasic)
	_, err := v.Validate(model.RawSubmission{
		"name":    "A",
		"email":   "x@x.com",
		"phone":   "1234567890",
		"message": "Hello there",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if diff := cmp.Diff([]string{"name", "phone"}, fieldsOf(err)); diff != "" {
		t.Errorf("error fields mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MissingPhoneReportsOnlyRequired(t *testing.T) {
	raw := validRaw()
	delete(raw, "phone")

	_, err := New(TierBasic).Validate(raw)
	want := model.ValidationErrors{{Field: "phone", Message: "Phone is required"}}
	if diff := cmp.Diff(want, err); diff != "" {
		t.Errorf("unexpected errors (-want +got):\n%s", diff)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	_, err := New(TierBasic).Validate(model.RawSubmission{"name": "   "})
	want := model.ValidationErrors{
		{Field: "name", Message: "Name is required"},
		{Field: "email", Message: "Email is required"},
		{Field: "phone", Message: "Phone is required"},
		{Field: "message", Message: "Message is required"},
	}
	if diff := cmp.Diff(want, err); diff != "" {
		t.Errorf("unexpected errors (-want +got):\n%s", diff)
	}
}

func TestValidate_Name(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMsg string
	}{
		{"single letter", "A", "Name must be between 2 and 50 characters"},
		{"too long", strings.Repeat("ab", 26), "Name must be between 2 and 50 characters"},
		{"digits", "Jane 2", "Name can only contain letters, spaces, hyphens, and apostrophes"},
		{"fragments", "A B C", "Please enter a valid full name"},
		{"apostrophe and hyphen", "Mary-Jane O'Neil", ""},
		{"trimmed", "  Jo  ", ""},
	}
	v := New(TierBasic)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, msg := v.name(tt.value)
			if msg != tt.wantMsg {
				t.Errorf("name(%q) = %q, want %q", tt.value, msg, tt.wantMsg)
			}
		})
	}
}

func TestValidate_EmailNormalizedToLowercase(t *testing.T) {
	raw := validRaw()
	raw["email"] = "  Jane.Doe@Example.COM "
	got, err := New(TierBasic).Validate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "jane.doe@example.com" {
		t.Errorf("expected lowercased email, got %q", got.Email)
	}
}

func TestValidate_Email(t *testing.T) {
	v := New(TierBasic)
	long := strings.Repeat("a", 60) + "@" + strings.Repeat("b", 40) + ".com"
	cases := map[string]string{
		"no-at-sign":        "Please enter a valid email address",
		"user@localhost":    "Please enter a valid email address",
		"user@@example.com": "Please enter a valid email address",
		long:                "Email must not exceed 100 characters",
		"ok@school.edu.in":  "",
	}
	for in, want := range cases {
		if _, msg := v.emailAddress(in); msg != want {
			t.Errorf("emailAddress(%q) = %q, want %q", in, msg, want)
		}
	}
}

func TestValidate_Phone(t *testing.T) {
	tests := []struct {
		value    string
		wantNorm string
		wantMsg  string
	}{
		{"5555555555", "5555555555", "Please enter a valid phone number"},
		{"1234567890", "1234567890", "Please enter a valid phone number"},
		{"98765 01234", "9876501234", "Please enter a valid phone number"},
		{"(987) 654-3210", "9876543210", ""},
		{"98765", "98765", "Phone number must be exactly 10 digits"},
		{"+91 98765 43210", "919876543210", "Phone number must be exactly 10 digits"},
	}
	v := New(TierBasic)
	for _, tt := range tests {
		norm, msg := v.phone(tt.value)
		if norm != tt.wantNorm || msg != tt.wantMsg {
			t.Errorf("phone(%q) = (%q, %q), want (%q, %q)", tt.value, norm, msg, tt.wantNorm, tt.wantMsg)
		}
	}
}

func TestValidate_PhoneAllIdenticalRejectedRegardlessOfOtherFields(t *testing.T) {
	_, err := New(TierBasic).Validate(model.RawSubmission{"phone": "5555555555"})
	verrs, ok := err.(model.ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	for _, fe := range verrs {
		if fe.Field == "phone" && fe.Message == "Please enter a valid phone number" {
			return
		}
	}
	t.Errorf("phone error missing from %v", verrs)
}

func TestValidate_MessageSpam(t *testing.T) {
	spam := []string{
		"Click here for free money!!!!!",
		"Visit https://example.com for details",
		"Pay only $500 for a guaranteed seat",
		"This is URGENT please respond",
		"Hellooooo is anyone reading this",
		"AaAaA mixed case run counts too",
	}
	for _, msg := range spam {
		if !IsSpam(msg) {
			t.Errorf("IsSpam(%q) = false, want true", msg)
		}
	}
	if IsSpam("Interested in nursery admission for my child") {
		t.Error("plain enquiry flagged as spam")
	}
}

func TestValidate_MessageSpamRejectedRegardlessOfLength(t *testing.T) {
	raw := validRaw()
	raw["message"] = "Click here for free money!!!!!"
	_, err := New(TierBasic).Validate(raw)
	want := model.ValidationErrors{{Field: "message", Message: "Message appears to contain spam content"}}
	if diff := cmp.Diff(want, err); diff != "" {
		t.Errorf("unexpected errors (-want +got):\n%s", diff)
	}
}

func TestValidate_MessageTiers(t *testing.T) {
	raw := validRaw()
	raw["message"] = "Admissions??"

	if _, err := New(TierBasic).Validate(raw); err != nil {
		t.Errorf("basic tier should accept a single word: %v", err)
	}

	_, err := New(TierStrict).Validate(raw)
	want := model.ValidationErrors{{Field: "message", Message: "Message must contain at least 3 meaningful words"}}
	if diff := cmp.Diff(want, err); diff != "" {
		t.Errorf("strict tier (-want +got):\n%s", diff)
	}
}

func TestMeaningfulWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Interested in admission", 3},
		{"Hello, world!!", 2},
		{"..........?", 0},
		{"मला प्रवेशाबद्दल माहिती हवी आहे", 5},
		{"प्रवेश?", 1},
		{"Grade 5 admission", 3},
	}
	for _, tt := range tests {
		if got := MeaningfulWords(tt.in); got != tt.want {
			t.Errorf("MeaningfulWords(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidate_MarathiMessageAccepted(t *testing.T) {
	raw := validRaw()
	raw["message"] = "मला प्रवेशाबद्दल माहिती हवी आहे"

	for _, tier := range []Tier{TierBasic, TierStrict} {
		if _, err := New(tier).Validate(raw); err != nil {
			t.Errorf("%s tier rejected a Marathi message: %v", tier, err)
		}
	}
}

func TestValidate_MessageLength(t *testing.T) {
	v := New(TierBasic)
	if _, msg := v.message("Too short"); msg != "Message must be between 10 and 500 characters" {
		t.Errorf("short message: got %q", msg)
	}
	if _, msg := v.message(strings.Repeat("word ", 101)); msg != "Message must be between 10 and 500 characters" {
		t.Errorf("long message: got %q", msg)
	}
	if _, msg := v.message("..........?"); msg != "Message must contain at least 1 meaningful word" {
		t.Errorf("punctuation only: got %q", msg)
	}
}

func TestValidate_OptionalFieldsSanitized(t *testing.T) {
	raw := validRaw()
	raw["userAgent"] = "<script>" + strings.Repeat("x", 600)
	raw["referralSource"] = " <b>Google</b> "
	raw["ipAddress"] = "203.0.113.7"

	got, err := New(TierBasic).Validate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.UserAgent) != 500 || strings.ContainsAny(got.UserAgent, "<>") {
		t.Errorf("userAgent not capped/stripped: len=%d", len(got.UserAgent))
	}
	if got.ReferralSource != "bGoogle/b" {
		t.Errorf("referralSource = %q", got.ReferralSource)
	}
	if got.IPAddress != "203.0.113.7" {
		t.Errorf("ipAddress = %q", got.IPAddress)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	v := New(TierStrict)
	inputs := []model.RawSubmission{validRaw(), {"name": "A", "phone": "1234567890"}}
	for _, in := range inputs {
		a, errA := v.Validate(in)
		b, errB := v.Validate(in)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("result differs between runs:\n%s", diff)
		}
		if diff := cmp.Diff(errA, errB); diff != "" {
			t.Errorf("error differs between runs:\n%s", diff)
		}
	}
}

func TestParseTier(t *testing.T) {
	if ParseTier("STRICT") != TierStrict {
		t.Error("expected strict")
	}
	if ParseTier("") != TierBasic || ParseTier("lenient") != TierBasic {
		t.Error("expected basic default")
	}
}
