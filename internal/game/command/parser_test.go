package command

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want ParseResult
	}{
		{"", ParseResult{}},
		{"   ", ParseResult{}},
		{"roll", ParseResult{Command: "roll"}},
		{"ROLL 101100", ParseResult{Command: "roll", Args: []string{"101100"}, RawArgs: "101100"}},
		{"Sit Blue", ParseResult{Command: "sit", Args: []string{"Blue"}, RawArgs: "Blue"}},
		{"new 4 pair", ParseResult{Command: "new", Args: []string{"4", "pair"}, RawArgs: "4 pair"}},
		{"  say   good   luck  ", ParseResult{Command: "say", Args: []string{"good", "luck"}, RawArgs: "good   luck"}},
		{"3", ParseResult{Command: "move", Args: []string{"3"}, RawArgs: "3"}},
		{"'nice roll", ParseResult{Command: "say", Args: []string{"nice", "roll"}, RawArgs: "nice roll"}},
		{`"`, ParseResult{Command: "say"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Parse(tc.in), "input %q", tc.in)
	}
}

func TestParseResult_Arg(t *testing.T) {
	p := Parse("move 0-3 0-5")
	assert.Equal(t, "0-3", p.Arg(0))
	assert.Equal(t, "0-5", p.Arg(1))
	assert.Equal(t, "", p.Arg(2))
	assert.Equal(t, "", p.Arg(-1))
}

func TestPropertyParseLowercasesCommandWord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		arg := rapid.StringMatching(`[A-Za-z0-9]{0,8}`).Draw(t, "arg")
		got := Parse(word + " " + arg)
		if got.Command != strings.ToLower(word) {
			t.Fatalf("Parse(%q).Command = %q", word, got.Command)
		}
		if got.RawArgs != arg {
			t.Fatalf("Parse(%q).RawArgs = %q, want %q", word+" "+arg, got.RawArgs, arg)
		}
	})
}

func TestPropertyBareNumberIsAMove(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 99).Draw(t, "n")
		got := Parse(strconv.Itoa(n))
		if got.Command != "move" || got.Arg(0) != strconv.Itoa(n) {
			t.Fatalf("Parse(%d) = %+v", n, got)
		}
	})
}
