package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindUserConfig(t *testing.T) {
	env := func(v string) func(string) string {
		return func(key string) string {
			if key == "PADBRIDGE_CONFIG" {
				return v
			}
			return ""
		}
	}

	type testCase struct {
		name string
		args []string
		env  string
		want string
	}

	cases := []testCase{
		{name: "equals form", args: []string{"serve", "--config=/etc/pad.yaml"}, want: "/etc/pad.yaml"},
		{name: "separate value", args: []string{"--config", "pad.toml", "press", "A"}, want: "pad.toml"},
		{name: "flag wins over env", args: []string{"--config=a.json"}, env: "b.json", want: "a.json"},
		{name: "env fallback", args: []string{"serve"}, env: "b.json", want: "b.json"},
		{name: "dangling flag", args: []string{"--config"}, want: ""},
		{name: "nothing", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, findUserConfig(tc.args, env(tc.env)))
		})
	}
}
