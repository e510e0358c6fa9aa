package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-a", "-s"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "separate value", args: []string{"-a", "http://x", "-z", "1"}, want: []string{"-a", "http://x"}},
		{name: "equals form", args: []string{"-s=20", "-q=1"}, want: []string{"-s=20"}},
		{name: "flag without value at end", args: []string{"-a"}, want: []string{"-a"}},
		{name: "next arg is a flag", args: []string{"-a", "-s", "5"}, want: []string{"-a", "-s", "5"}},
		{name: "nothing allowed present", args: []string{"positional", "-x"}, want: []string{}},
		{name: "empty", args: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short", args: []string{"-c", "a.json"}, want: "a.json"},
		{name: "long", args: []string{"-config", "b.json"}, want: "b.json"},
		{name: "long equals", args: []string{"-a", "x", "-config=c.json"}, want: "c.json"},
		{name: "absent", args: []string{"-a", "x"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
