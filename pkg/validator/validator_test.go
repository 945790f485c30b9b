package validator

import (
	"testing"
)

type invitePayload struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"notblank"`
	Code  string `json:"code" validate:"omitempty,invitecode"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := invitePayload{Email: "kapitan@example.ph", Role: "secretary", Code: "004213"}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := invitePayload{Email: "invalid", Role: "   ", Code: "12ab56"}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Tag
	}
	if fields["email"] != "email" || fields["role"] != "notblank" || fields["code"] != "invitecode" {
		t.Fatalf("unexpected failures: %v", fields)
	}
}

func TestIsEmail(t *testing.T) {
	cases := map[string]bool{
		"secretary@brgy-malinis.gov.ph": true,
		"no-at-sign":                    false,
		"":                              false,
		"two@@example.com":              false,
	}
	for input, want := range cases {
		if got := IsEmail(input); got != want {
			t.Fatalf("IsEmail(%q) = %v, want %v", input, got, want)
		}
	}
}
