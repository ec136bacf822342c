package cssformat

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple rule",
			input: "body{margin:0;padding:0;}",
			want:  "body {\n  margin:0;\n  padding:0;\n}\n",
		},
		{
			name:  "multiple rules",
			input: "body{margin:0;}.header{color:red;}",
			want:  "body {\n  margin:0;\n}\n\n.header {\n  color:red;\n}\n",
		},
		{
			name:  "comments between rules",
			input: "/* Global styles */body{margin:0;}/* Header */h1{font-size:2em;}",
			want:  "/* Global styles */\nbody {\n  margin:0;\n}\n\n/* Header */\nh1 {\n  font-size:2em;\n}\n",
		},
		{
			name:  "comment between declarations",
			input: "body{margin:0;/* spacing */padding:0;}",
			want:  "body {\n  margin:0;\n  /* spacing */\n  padding:0;\n}\n",
		},
		{
			name:  "comment inside declaration",
			input: "a{color:red /* brand */;}",
			want:  "a {\n  color:red /* brand */;\n}\n",
		},
		{
			name:  "unterminated comment",
			input: "/* open",
			want:  "/* open\n",
		},
		{
			name:  "multiple selectors",
			input: "h1,h2,h3{font-family:sans-serif;color:#333;}",
			want:  "h1,h2,h3 {\n  font-family:sans-serif;\n  color:#333;\n}\n",
		},
		{
			name:  "pseudo-classes",
			input: "a:hover{color:red;}button::before{content:'→';}",
			want:  "a:hover {\n  color:red;\n}\n\nbutton::before {\n  content:'→';\n}\n",
		},
		{
			name:  "braces and semicolons in strings",
			input: `a::after{content:"{;}";}`,
			want:  "a::after {\n  content:\"{;}\";\n}\n",
		},
		{
			name:  "escaped quote in string",
			input: `a{content:"say \"hi\"";}`,
			want:  "a {\n  content:\"say \\\"hi\\\"\";\n}\n",
		},
		{
			name:  "at-rule statement",
			input: "@import url('x.css');body{}",
			want:  "@import url('x.css');\nbody {\n}\n",
		},
		{
			name:  "empty rule",
			input: "body{}",
			want:  "body {\n}\n",
		},
		{
			name:  "@keyframes animation",
			input: "@keyframes slide{0%{left:0;}100%{left:100%;}}",
			want:  "@keyframes slide {\n  0% {\n    left:0;\n  }\n  100% {\n    left:100%;\n  }\n}\n",
		},
		{
			name:  "deeply nested media queries",
			input: "@media screen{@media (min-width:768px){.container{max-width:750px;}}}",
			want:  "@media screen {\n  @media (min-width:768px) {\n    .container {\n      max-width:750px;\n    }\n  }\n}\n",
		},
		{
			name:  "already formatted",
			input: "body {\n  margin: 0;\n}\n",
			want:  "body {\n  margin: 0;\n}\n",
		},
		{
			name:  "windows line endings",
			input: "body {\r\n  margin: 0;\r\n}\r\n",
			want:  "body {\n  margin: 0;\n}\n",
		},
		{
			name:  "whitespace runs collapse",
			input: ".a{border:1px \t\n solid;}",
			want:  ".a {\n  border:1px solid;\n}\n",
		},
		{
			name:  "missing closing brace",
			input: "body{margin:0;padding:0;",
			want:  "body {\n  margin:0;\n  padding:0;\n",
		},
		{
			name:  "extra closing brace",
			input: "body{margin:0;}}",
			want:  "body {\n  margin:0;\n}\n\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.input, DefaultOptions())
			if got != tt.want {
				t.Errorf("Format() =\n%q\nwant:\n%q", got, tt.want)
				gotLines := strings.Split(got, "\n")
				wantLines := strings.Split(tt.want, "\n")
				for i := 0; i < len(gotLines) || i < len(wantLines); i++ {
					var gl, wl string
					if i < len(gotLines) {
						gl = gotLines[i]
					}
					if i < len(wantLines) {
						wl = wantLines[i]
					}
					if gl != wl {
						t.Logf("Line %d differs:\n  got:  %q\n  want: %q", i, gl, wl)
					}
				}
			}
		})
	}
}

func TestFormat_Options(t *testing.T) {
	got := Format("a{b:c;}", Options{Indent: "\t"})
	want := "a {\n\tb:c;\n}\n"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_EdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := Format("", DefaultOptions()); got != "" {
			t.Errorf("Format(\"\") = %q, want \"\"", got)
		}
	})

	t.Run("only whitespace", func(t *testing.T) {
		if got := Format("   \n\t  \r\n  ", DefaultOptions()); got != "" {
			t.Errorf("Format(whitespace) = %q, want \"\"", got)
		}
	})

	t.Run("very long property value", func(t *testing.T) {
		longValue := "url('data:image/png;base64," + strings.Repeat("A", 10000) + "')"
		got := Format(".bg{background-image:"+longValue+";}", DefaultOptions())
		if !strings.Contains(got, "background-image:"+longValue+";") {
			t.Error("Long property value was not preserved")
		}
	})

	t.Run("multiple blank lines", func(t *testing.T) {
		got := Format("body{margin:0;}\n\n\n\n.header{padding:0;}", DefaultOptions())
		if strings.Contains(got, "\n\n\n") {
			t.Error("Multiple blank lines not consolidated")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		input := "@media print{a{color:red;}}p{margin:0 auto;}"
		once := Format(input, DefaultOptions())
		if twice := Format(once, DefaultOptions()); twice != once {
			t.Errorf("Format(Format(x)) =\n%q\nwant:\n%q", twice, once)
		}
	})
}
