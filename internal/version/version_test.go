package version

import "testing"

func TestString(t *testing.T) {
	old := []string{Version, GitSHA, BuildTime}
	defer func() { Version, GitSHA, BuildTime = old[0], old[1], old[2] }()

	Version, GitSHA, BuildTime = "v0.3.0", "abc1234", "2024-05-01T10:00:00Z"
	if got, want := String(), "v0.3.0 (abc1234, built 2024-05-01T10:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
