package storage

import "testing"

func TestExtractPublicID(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712/avatars/jane.webp": "avatars/jane",
		"https://res.cloudinary.com/demo/image/upload/avatars/jane.webp":       "avatars/jane",
		"https://res.cloudinary.com/demo/image/upload/vacation.webp":           "vacation",
		"https://example.com/no-upload-segment/jane.webp":                      "",
	}
	for in, want := range cases {
		if got := extractPublicID(in); got != want {
			t.Errorf("extractPublicID(%q) = %q, want %q", in, got, want)
		}
	}
}
