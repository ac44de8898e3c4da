package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in    string
		want  Role
		admin bool
	}{
		{in: "admin", want: RoleAdmin, admin: true},
		{in: "none", want: RoleNone},
		{in: "", want: RoleNone},
		{in: "Admin", want: RoleNone},
		{in: "superuser", want: RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.admin, got.IsAdmin())
		})
	}
}

func TestRoleZeroValueIsNotAdmin(t *testing.T) {
	var r Role
	assert.False(t, r.IsAdmin())
}

func TestParseArticleStatus(t *testing.T) {
	for _, s := range []string{"pending", "approved", "declined"} {
		got, err := ParseArticleStatus(s)
		assert.NoError(t, err)
		assert.Equal(t, ArticleStatus(s), got)
	}

	_, err := ParseArticleStatus("published")
	assert.Error(t, err)
}
