package htmldoc

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"/js/main.js?v=2":           "/js/main.js",
		"/js/main.min.js":           "/js/main.js",
		"css/styles.min.css#x":      "css/styles.css",
		"./js/app.js":               "js/app.js",
		"https://cdn.test/a.min.js": "https://cdn.test/a.js",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractVersion(t *testing.T) {
	tests := map[string]string{
		"/a.js?v=1.2":             "1.2",
		"/a.js?ver=20250101":      "20250101",
		"/a.js?x=1&version=3#top": "3",
		"/a.js":                   "",
		"/a.js?cache=1":           "",
	}
	for in, want := range tests {
		if got := ExtractVersion(in); got != want {
			t.Errorf("ExtractVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetVersion(t *testing.T) {
	tests := []struct {
		in, param, version, want string
	}{
		{"/a.js", "", "2", "/a.js?v=2"},
		{"/a.js?v=1", "v", "2", "/a.js?v=2"},
		{"/a.js?ver=1&lang=ko", "v", "2", "/a.js?ver=2&lang=ko"},
		{"/a.css?lang=ko#x", "v", "20250701", "/a.css?lang=ko&v=20250701#x"},
		{"/a.js?v=1&v=3", "v", "4", "/a.js?v=4"},
		{"/a.js", "ver", "5", "/a.js?ver=5"},
	}
	for _, tt := range tests {
		if got := SetVersion(tt.in, tt.param, tt.version); got != tt.want {
			t.Errorf("SetVersion(%q, %q) = %q, want %q", tt.in, tt.version, got, tt.want)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.10", "1.2.9", 1},
		{"1.0", "1.0.0", 0},
		{"2.0", "10.0", -1},
		{"20250701", "20250630", 1},
		{"", "1", -1},
		{"1", "", 1},
		{"v1.1", "1.2", -1},
		{"1.0-beta", "1.0-alpha", 1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsLocal(t *testing.T) {
	local := []string{"/js/a.js", "css/a.css", "../img.png"}
	remote := []string{"https://doha.kr/a.js", "//cdn.test/a.js", "data:image/png;base64,xx", "#top", "mailto:a@b", ""}
	for _, u := range local {
		if !IsLocal(u) {
			t.Errorf("IsLocal(%q) = false", u)
		}
	}
	for _, u := range remote {
		if IsLocal(u) {
			t.Errorf("IsLocal(%q) = true", u)
		}
	}
}

func TestResolveLocal(t *testing.T) {
	tests := []struct {
		page, ref string
		want      string
		ok        bool
	}{
		{"index.html", "/css/styles.css?v=1", "css/styles.css", true},
		{"about/index.html", "../css/styles.css", "css/styles.css", true},
		{"tests/mbti/test.html", "result.html#x", "tests/mbti/result.html", true},
		{"tests/mbti/", "../", "tests/index.html", true},
		{"index.html", "../outside.js", "", false},
		{"index.html", "https://doha.kr/a.js", "", false},
		{"index.html", "/", "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveLocal(tt.page, tt.ref)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ResolveLocal(%q, %q) = %q, %v; want %q, %v", tt.page, tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	if got := AbsoluteURL("https://doha.kr/tests/", "../css/a.css"); got != "https://doha.kr/css/a.css" {
		t.Errorf("AbsoluteURL = %q", got)
	}
}
