package main

import (
	"errors"
	"testing"
)

func TestFormatCobraError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "mutually exclusive flags",
			err:  errors.New("if any flags in the group [write check] are set none of the others can be; [check write] were all set"),
			want: "--check and --write cannot be used together",
		},
		{
			name: "unknown command",
			err:  errors.New(`unknown command "frmat" for "tagfmt"`),
			want: `unknown command "frmat" for "tagfmt" (see 'tagfmt --help')`,
		},
		{
			name: "other errors pass through",
			err:  errors.New("invalid argument \"x\" for \"--indent\" flag"),
			want: "invalid argument \"x\" for \"--indent\" flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCobraError(tt.err); got != tt.want {
				t.Errorf("formatCobraError() = %q, want %q", got, tt.want)
			}
		})
	}
}
