package htmlcheck

import (
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       []Issue
		wantErrors bool
	}{
		{
			name:  "empty input",
			input: "",
		},
		{
			name:  "balanced document",
			input: `<!DOCTYPE html><html><body><div><p>x</p></div></body></html>`,
		},
		{
			name:  "void and self-closing elements",
			input: `<div><img src="a.png"><br><my-icon/></div>`,
		},
		{
			name:  "script content is not markup",
			input: `<script>if (a < b) { x = "</div>"; }</script>`,
		},
		{
			name:  "omitted optional closing tags",
			input: `<ul><li>a<li>b</ul>`,
		},
		{
			name:  "unexpected closing tag",
			input: `</div>`,
			want: []Issue{
				{Line: 1, Column: 1, Severity: SeverityError, Message: "unexpected closing tag </div>"},
			},
			wantErrors: true,
		},
		{
			name:  "mismatched closing tag",
			input: `<div><span></div>`,
			want: []Issue{
				{Line: 1, Column: 12, Severity: SeverityError, Message: "closing tag </div> does not match open <span> from line 1"},
			},
			wantErrors: true,
		},
		{
			name:  "unclosed elements",
			input: "<div>\n<p>x",
			want: []Issue{
				{Line: 1, Column: 1, Severity: SeverityError, Message: "element <div> is never closed"},
				{Line: 2, Column: 1, Severity: SeverityWarning, Message: "element <p> is never closed"},
			},
			wantErrors: true,
		},
		{
			name:  "closing tag for void element",
			input: `<br></br>`,
			want: []Issue{
				{Line: 1, Column: 5, Severity: SeverityWarning, Message: "closing tag </br> for void element"},
			},
			wantErrors: false,
		},
		{
			name:  "columns count characters",
			input: "<p>é</b></p>",
			want: []Issue{
				{Line: 1, Column: 5, Severity: SeverityError, Message: "unexpected closing tag </b>"},
			},
			wantErrors: true,
		},
		{
			name:  "uppercase tags match",
			input: `<DIV></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.input)
			if len(res.Issues) != len(tt.want) {
				t.Fatalf("Check() returned %d issues, want %d: %v", len(res.Issues), len(tt.want), res.Issues)
			}
			for i, want := range tt.want {
				if res.Issues[i] != want {
					t.Errorf("issue %d = %+v, want %+v", i, res.Issues[i], want)
				}
			}
			if res.HasErrors() != tt.wantErrors {
				t.Errorf("HasErrors() = %v, want %v", res.HasErrors(), tt.wantErrors)
			}
		})
	}
}

func TestIssueString(t *testing.T) {
	issue := Issue{Line: 3, Column: 7, Severity: SeverityError, Message: "unexpected closing tag </p>"}
	want := "3:7: error: unexpected closing tag </p>"
	if got := issue.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
