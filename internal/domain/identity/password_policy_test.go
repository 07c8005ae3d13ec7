package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy_Check(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name       string
		password   string
		attributes []string
		wantErrors int
	}{
		{name: "accepts ordinary password", password: "pw123456", attributes: []string{"alice", "a@x.com"}, wantErrors: 0},
		{name: "accepts six characters", password: "zq9x7w", wantErrors: 0},
		{name: "rejects five characters", password: "zq9x7", wantErrors: 1},
		{name: "rejects numeric only", password: "90817263", wantErrors: 1},
		{name: "rejects common password", password: "Password", wantErrors: 1},
		{name: "rejects short common numeric", password: "1234", wantErrors: 3},
		{name: "rejects password similar to username", password: "alice123", attributes: []string{"alice123x"}, wantErrors: 1},
		{name: "rejects password similar to email local part", password: "johnsmith", attributes: []string{"johnsmith@example.com"}, wantErrors: 1},
		{name: "rejects blank", password: "", wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := policy.Check(tt.password, tt.attributes...)
			assert.Len(t, msgs, tt.wantErrors, msgs)
		})
	}
}

func TestQuickRatio(t *testing.T) {
	assert.InDelta(t, 1.0, quickRatio("abc", "cba"), 0.0001)
	assert.InDelta(t, 0.0, quickRatio("abc", "xyz"), 0.0001)
	assert.InDelta(t, 0.5, quickRatio("ab", "ax"), 0.0001)
}
