package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("zz")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "en-US"},
		{header: "pt-BR,pt;q=0.9", want: "pt-BR"},
		{header: "en-GB", want: "en-US"},
	}
	for _, tc := range tests {
		if got := Negotiate(tc.header); got != tc.want {
			t.Fatalf("Negotiate(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestFormatUsesMetadata(t *testing.T) {
	got := GetCatalog("en-US").Format(CodeSessionNotFound, map[string]string{"SessionID": "ABCD1234"})
	if got != "Game ABCD1234 does not exist" {
		t.Fatalf("message = %q", got)
	}
}

func TestFormatFallsBackToBaseLocale(t *testing.T) {
	got := GetCatalog("pt-BR").Format(CodeRoundInvalidNumber, nil)
	if got != "Round number must be at least 1" {
		t.Fatalf("message = %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
