package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/ir"
)

func TestParseShapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"M.Gold >= 10 and not H.Dead", "((M.Gold >= 10) and (not H.Dead))"},
		{"a.x || b.y && c.z", "(a.x or (b.y and c.z))"},
		{"!a.x", "(not a.x)"},
		{"-M.Gold - -1", "((-M.Gold) - (-1))"},
		{`M.Name == "Bob \"B\""`, `(M.Name == "Bob \"B\"")`},
		{"'single' != null", `("single" != null)`},
		{"True == False", "(true == false)"},
		{"1.5 % 1", "(1.5 % 1)"},
		{"Ż.Złoto > 0", "(Ż.Złoto > 0)"},
		{"a.b.c == 1", "(a.b.c == 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
			assert.Equal(t, tt.src, e.Source())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"(1 + 2",
		"M",
		"M.",
		"1 2",
		"M.Gold $ 3",
		`"open`,
		`"bad \q escape"`,
		"1 < 2 < 3",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			assert.True(t, IsExprError(err))
		})
	}
}

func TestRefs(t *testing.T) {
	e := MustParse("M.Gold + a.b.Hp > H.Gold")
	var got []string
	for _, r := range e.Refs() {
		got = append(got, r.Ref+"|"+r.Name)
	}
	assert.Equal(t, []string{"M|Gold", "a.b|Hp", "H|Gold"}, got)
}

func TestEval(t *testing.T) {
	env := Attrs{
		"M": {"Gold": ir.Int(10), "Name": ir.String("Bob"), "Rich": ir.Bool(true), "Ratio": ir.Float(0.5)},
		"H": {"Gold": ir.Int(3), "Title": ir.Null{}},
	}
	tests := []struct {
		src  string
		want ir.Value
	}{
		{"M.Gold + 5", ir.Int(15)},
		{"M.Gold - H.Gold * 2", ir.Int(4)},
		{"M.Gold / 4", ir.Float(2.5)},
		{"M.Gold / 5", ir.Int(2)},
		{"M.Gold % 3", ir.Int(1)},
		{"M.Ratio * 4", ir.Int(2)},
		{"-M.Gold", ir.Int(-10)},
		{"M.Gold > H.Gold", ir.Bool(true)},
		{"M.Gold == 10.0", ir.Bool(true)},
		{"M.Name == 'Bob'", ir.Bool(true)},
		{"M.Name + '!' == \"Bob!\"", ir.Bool(true)},
		{"M.Name < 'Carl'", ir.Bool(true)},
		{"H.Title == null", ir.Bool(true)},
		{"M.Rich and not (H.Gold > 5)", ir.Bool(true)},
		{"M.Rich && H.Gold >= 3", ir.Bool(true)},
		{"M.Gold != 10 || M.Rich == False", ir.Bool(false)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := MustParse(tt.src).Eval(env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvalShortCircuit(t *testing.T) {
	env := Attrs{"M": {"Rich": ir.Bool(false)}}

	ok, err := MustParse("M.Rich and Q.Missing > 1").EvalBool(env)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = MustParse("not M.Rich or Q.Missing > 1").EvalBool(env)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalErrors(t *testing.T) {
	env := Attrs{"M": {"Gold": ir.Int(10), "Name": ir.String("Bob"), "Rich": ir.Bool(true)}}
	for _, src := range []string{
		"M.Missing > 1",
		"Q.Gold > 1",
		"M.Name > 1",
		"M.Name - 1",
		"M.Gold / 0",
		"M.Gold % 0",
		"not M.Gold",
		"-M.Name",
		"M.Gold and M.Rich",
		"M.Rich and M.Gold",
		"not M.Rich or M.Gold",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := MustParse(src).Eval(env)
			require.Error(t, err)
			assert.True(t, IsExprError(err))
		})
	}
}

func TestEvalKeepsEnvError(t *testing.T) {
	lookup := errors.New("no such node")
	_, err := MustParse("Q.Gold > 1").Eval(failingEnv{lookup})
	require.Error(t, err)
	assert.True(t, IsExprError(err))
	assert.ErrorIs(t, err, lookup)
}

type failingEnv struct{ err error }

func (e failingEnv) Attr(string, string) (ir.Value, error) { return nil, e.err }

func TestEvalBoolRequiresBool(t *testing.T) {
	_, err := MustParse("1 + 1").EvalBool(Attrs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
}

func TestArith(t *testing.T) {
	v, err := Arith("+", ir.Int(10), ir.Int(5))
	require.NoError(t, err)
	assert.Equal(t, ir.Int(15), v)

	v, err = Arith("*", ir.Float(1.5), ir.Int(3))
	require.NoError(t, err)
	assert.Equal(t, ir.Float(4.5), v)

	v, err = Arith("*", ir.Float(2.5), ir.Int(2))
	require.NoError(t, err)
	assert.Equal(t, ir.Int(5), v)

	_, err = Arith("+", ir.String("a"), ir.Int(1))
	assert.Error(t, err)
}

func TestArithIntOverflowBecomesFloat(t *testing.T) {
	tests := []struct {
		op   string
		x, y ir.Int
		want ir.Value
	}{
		{"+", math.MaxInt64 - 1, 1, ir.Int(math.MaxInt64)},
		{"+", math.MaxInt64, 1, ir.Float(1 << 63)},
		{"-", math.MinInt64, 1, ir.Float(-(1 << 63))},
		{"-", 0, math.MinInt64, ir.Float(1 << 63)},
		{"*", math.MaxInt64/2 + 1, 2, ir.Float(1 << 63)},
		{"*", math.MinInt64, -1, ir.Float(1 << 63)},
		{"*", -1, math.MinInt64, ir.Float(1 << 63)},
		{"*", math.MinInt64, 0, ir.Int(0)},
		{"%", math.MinInt64, -1, ir.Int(0)},
	}
	for _, tt := range tests {
		v, err := Arith(tt.op, tt.x, tt.y)
		require.NoError(t, err, "%d %s %d", tt.x, tt.op, tt.y)
		assert.Equal(t, tt.want, v, "%d %s %d", tt.x, tt.op, tt.y)
	}
}
