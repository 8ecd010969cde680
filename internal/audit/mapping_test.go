package audit

import "testing"

func TestResourceFor(t *testing.T) {
	cases := []struct {
		action string
		want   string
	}{
		{ActionLoginSuccess, "credentials"},
		{ActionLoginFailure, "credentials"},
		{ActionOAuthLogin, "credentials"},
		{ActionRefresh, "session"},
		{ActionLogout, "session"},
		{"something_else", "auth"},
	}
	for _, c := range cases {
		if got := ResourceFor(c.action); got != c.want {
			t.Errorf("ResourceFor(%q) = %q, want %q", c.action, got, c.want)
		}
	}
}
