package validation

import "testing"

func Test_HasPasswordClasses(t *testing.T) {
	cases := []struct {
		pw   string
		want bool
	}{
		{"Str0ngPass", true},
		{"password1", false}, // no upper
		{"PASSWORD1", false}, // no lower
		{"Passwordx", false}, // no digit
		{"", false},
		{"aB3", true}, // classes only; length is a separate tag
	}
	for _, tc := range cases {
		if got := HasPasswordClasses(tc.pw); got != tc.want {
			t.Errorf("HasPasswordClasses(%q) = %v, want %v", tc.pw, got, tc.want)
		}
	}
}

func Test_Validate_UsesJSONFieldNames(t *testing.T) {
	type in struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,strongpw"`
	}

	errs, err := Validate(in{Email: "a@b", Password: "short"})
	if err != nil {
		t.Fatal(err)
	}
	if len(errs["email"]) == 0 {
		t.Fatalf("expected errors under json key 'email', got %+v", errs)
	}
	if len(errs["password"]) == 0 {
		t.Fatalf("expected errors under json key 'password', got %+v", errs)
	}
}

func Test_Validate_ValidInputReturnsNil(t *testing.T) {
	type in struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,strongpw"`
	}

	errs, err := Validate(in{Email: "a@b.co", Password: "Str0ngPass"})
	if err != nil {
		t.Fatal(err)
	}
	if errs != nil {
		t.Fatalf("want nil, got %+v", errs)
	}
}

func Test_Validate_ExpYear(t *testing.T) {
	type in struct {
		Year int `json:"expiry_year" validate:"omitempty,expyear"`
	}

	if errs, _ := Validate(in{Year: 2099}); errs != nil {
		t.Fatalf("future year rejected: %+v", errs)
	}
	if errs, _ := Validate(in{Year: 2001}); len(errs["expiry_year"]) == 0 {
		t.Fatal("past year accepted")
	}
	if errs, _ := Validate(in{Year: 0}); errs != nil {
		t.Fatalf("zero (omitted) year rejected: %+v", errs)
	}
}
