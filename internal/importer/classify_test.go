package importer

import "testing"

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"First Name":                  "first name",
		"  Email Address  ":           "email address",
		"Vocation/Work\nSphere":       "vocation/work sphere",
		"Working   or \r\n Student":   "working or student",
		"ATTENDANCE":                  "attendance",
		"":                                     "",
		"Email Confrimation\nTN\nSecretariat":  "email confrimation tn secretariat",
	}
	for in, want := range cases {
		if got := NormalizeHeader(in); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeHeaderIdempotent(t *testing.T) {
	for _, h := range []string{"First Name", "vocation/work sphere", "  A   B  "} {
		once := NormalizeHeader(h)
		if twice := NormalizeHeader(once); twice != once {
			t.Errorf("NormalizeHeader not idempotent for %q: %q != %q", h, once, twice)
		}
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"1", "y", "Y", "yes", "YES", "true", "t", "checked", "x", "X", "present", " Present "}
	for _, v := range truthy {
		if !ParseBool(v) {
			t.Errorf("ParseBool(%q) = false, want true", v)
		}
	}
	falsy := []string{"", "0", "no", "n", "false", "absent", "2", "yess"}
	for _, v := range falsy {
		if ParseBool(v) {
			t.Errorf("ParseBool(%q) = true, want false", v)
		}
	}
}

func TestNormalizeWorkingStudent(t *testing.T) {
	cases := []struct {
		in   string
		want string // "" means nil
	}{
		{"Working", "working"},
		{"working professional", "working"},
		{"Student", "student"},
		{"college student", "student"},
		{"", ""},
		{"retired", ""},
	}
	for _, c := range cases {
		got := NormalizeWorkingStudent(c.in)
		if c.want == "" {
			if got != nil {
				t.Errorf("NormalizeWorkingStudent(%q) = %q, want nil", c.in, *got)
			}
			continue
		}
		if got == nil || *got != c.want {
			t.Errorf("NormalizeWorkingStudent(%q) = %v, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeModeOfPayment(t *testing.T) {
	cases := []struct {
		in   string
		want string // "" means nil
	}{
		{"GCash", "gcash"},
		{"gcash transfer", "gcash"},
		{"Bank Transfer", "bank"},
		{"Cash", "cash"},
		{"PayMaya", "other"},
		{"", ""},
	}
	for _, c := range cases {
		got := NormalizeModeOfPayment(c.in)
		if c.want == "" {
			if got != nil {
				t.Errorf("NormalizeModeOfPayment(%q) = %q, want nil", c.in, *got)
			}
			continue
		}
		if got == nil || *got != c.want {
			t.Errorf("NormalizeModeOfPayment(%q) = %v, want %q", c.in, got, c.want)
		}
	}
}

// The sentinel fills blank names on the payload but must keep the row out of
// duplicate matching.
func TestNameSentinelBlocksMatching(t *testing.T) {
	p := &RowPayload{FirstName: NameSentinel, LastName: "Santos"}
	if p.HasRealName() {
		t.Error("payload with sentinel first name should not have a real name")
	}
	p = &RowPayload{FirstName: "Maria", LastName: "Santos"}
	if !p.HasRealName() {
		t.Error("payload with real names should match")
	}
}
