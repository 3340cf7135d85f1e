package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Summer Linen Shirt", "summer-linen-shirt"},
		{"  Trail  Runner 2.0!! ", "trail-runner-2-0"},
		{"T-Shirts & Tops", "t-shirts-tops"},
		{"---", "item"},
		{"", "item"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := Make(tc.in); got != tc.want {
				t.Errorf("Make(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("tee", 1); got != "tee" {
		t.Errorf("got %q", got)
	}
	if got := WithSuffix("tee", 3); got != "tee-3" {
		t.Errorf("got %q", got)
	}
}
