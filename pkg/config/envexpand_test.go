package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "api_key: ${API_KEY}",
			env:   map[string]string{"API_KEY": "secret123"},
			want:  "api_key: secret123",
		},
		{
			name:  "bare dollar substitution",
			input: "path: $KUBECONFIG",
			env:   map[string]string{"KUBECONFIG": "/home/user/.kube/config"},
			want:  "path: /home/user/.kube/config",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: ${PROTOCOL}://${HOST}:${PORT}",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "example.com",
				"PORT":     "443",
			},
			want: "url: https://example.com:443",
		},
		{
			name:  "missing variable expands to empty",
			input: "endpoint: ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "endpoint: ",
		},
		{
			name:  "no substitution when no variables",
			input: "static = \"value\"",
			env:   map[string]string{"UNUSED": "value"},
			want:  "static = \"value\"",
		},
		{
			name:  "variable with underscores",
			input: "key = \"${MY_LONG_VAR_NAME}\"",
			env:   map[string]string{"MY_LONG_VAR_NAME": "value"},
			want:  "key = \"value\"",
		},
		{
			name: "complex config with multiple variables",
			input: `
[postgres]
host = "${DB_HOST}"
port = ${DB_PORT}
user = "${DB_USER}"
password = "${DB_PASSWORD}"
`,
			env: map[string]string{
				"DB_HOST":     "localhost",
				"DB_PORT":     "5432",
				"DB_USER":     "convoengine",
				"DB_PASSWORD": "secret",
			},
			want: `
[postgres]
host = "localhost"
port = 5432
user = "convoengine"
password = "secret"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvPreservesOriginalWhenNoVariables(t *testing.T) {
	input := `
# a comment
key = "value"
number = 123
boolean = true
`
	result := ExpandEnv([]byte(input))
	assert.Equal(t, input, string(result))
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result))
}
