package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchValidator(t *testing.T) {
	v, err := NewPatchValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"replace password", `[{"op":"replace","path":"/password","value":"s3cret"}]`, true},
		{"password object", `[{"op":"add","path":"/password","value":{"new_password":"x"}}]`, true},
		{"remove without value", `[{"op":"remove","path":"/netid"}]`, true},
		{"several operations", `[{"op":"replace","path":"/email","value":"a@b.c"},{"op":"replace","path":"/canLogIn","value":false}]`, true},
		{"empty array", `[]`, false},
		{"object instead of array", `{"op":"replace","path":"/email","value":"a@b.c"}`, false},
		{"unknown op", `[{"op":"merge","path":"/email","value":"a@b.c"}]`, false},
		{"missing path", `[{"op":"replace","value":"a@b.c"}]`, false},
		{"relative path", `[{"op":"replace","path":"email","value":"a@b.c"}]`, false},
		{"replace without value", `[{"op":"replace","path":"/email"}]`, false},
		{"move without from", `[{"op":"move","path":"/email"}]`, false},
		{"not json", `op=replace`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.body))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPatch)
		})
	}
}

func TestPatchValidator_ErrorNamesLocation(t *testing.T) {
	v, err := NewPatchValidator()
	require.NoError(t, err)

	err = v.Validate([]byte(`[{"op":"replace","path":"/email","value":"a"},{"op":"bogus","path":"/x"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$.1")
}
