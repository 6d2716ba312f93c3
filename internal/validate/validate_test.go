package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/validate"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	SKU      string `json:"sku" validate:"omitempty,sku"`
	Method   string `json:"method" validate:"omitempty,oneof=shipping store_pickup"`
}

func TestStruct(t *testing.T) {
	ok := signup{Email: "a@b.co", Username: "ann_1", Password: "secret", Phone: "+1 (555) 010-0100", SKU: "BK-1"}
	require.NoError(t, validate.Struct(ok))

	cases := []struct {
		name string
		mut  func(*signup)
		want string
	}{
		{"missing email", func(s *signup) { s.Email = "" }, "email is required"},
		{"bad email", func(s *signup) { s.Email = "nope" }, "email must be a valid email address"},
		{"short password", func(s *signup) { s.Password = "abc" }, "password must be at least 6 characters"},
		{"username charset", func(s *signup) { s.Username = "ann smith" }, "username may contain"},
		{"short username", func(s *signup) { s.Username = "an" }, "username may contain"},
		{"sku charset", func(s *signup) { s.SKU = "BK 1" }, "sku may contain"},
		{"phone", func(s *signup) { s.Phone = "call me" }, "phone is invalid"},
		{"oneof", func(s *signup) { s.Method = "drone" }, "method must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := ok
			tc.mut(&in)
			err := validate.Struct(in)
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.True(t, strings.HasPrefix(ae.Message, tc.want), ae.Message)
		})
	}
}

func TestQ(t *testing.T) {
	q, ok := validate.Q("  Science Fiction ")
	assert.True(t, ok)
	assert.Equal(t, "Science Fiction", q)

	q, ok = validate.Q("café & crème")
	assert.True(t, ok, q)

	_, ok = validate.Q("   ")
	assert.False(t, ok)
	_, ok = validate.Q("<script>")
	assert.False(t, ok)

	q, _ = validate.Q(strings.Repeat("a", 150))
	assert.Len(t, q, 100)
}
