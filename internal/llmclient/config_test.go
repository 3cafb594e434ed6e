package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{APIKey: "k", Model: "gpt-4o"}, false},
		{"missing key", Config{Model: "gpt-4o"}, true},
		{"missing model", Config{APIKey: "k"}, true},
		{"negative retries", Config{APIKey: "k", Model: "gpt-4o", MaxRetries: -1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewClient_RejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err, "expected error for a config with no API key")

	_, err = NewClient(nil)
	assert.Error(t, err, "expected error for a nil config")
}
