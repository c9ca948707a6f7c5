package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

func TestParams_Missing(t *testing.T) {
	p := Params{"host": "db", "user": "", "password": nil}
	assert.Equal(t, []string{"user", "password", "database"}, p.Missing([]string{"host", "user", "password", "database"}))
	assert.Empty(t, p.Missing([]string{"host"}))
	assert.Empty(t, Params{}.Missing(nil))
}

func TestParams_Int(t *testing.T) {
	p := Params{"json": float64(5432), "int": 3306, "str": "1521", "frac": 1.5, "bad": true}

	n, err := p.Int("json", 0)
	require.NoError(t, err)
	assert.Equal(t, 5432, n)

	n, err = p.Int("int", 0)
	require.NoError(t, err)
	assert.Equal(t, 3306, n)

	n, err = p.Int("str", 0)
	require.NoError(t, err)
	assert.Equal(t, 1521, n)

	n, err = p.Int("absent", 27017)
	require.NoError(t, err)
	assert.Equal(t, 27017, n)

	_, err = p.Int("frac", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)

	_, err = p.Int("bad", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	assert.Contains(t, err.Error(), `parameter "bad" must be an integer, got bool`)
}

func TestParams_String(t *testing.T) {
	p := Params{"host": "db", "port": 5432}

	s, err := p.String("host", "localhost")
	require.NoError(t, err)
	assert.Equal(t, "db", s)

	s, err = p.String("absent", "localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost", s)

	_, err = p.String("port", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
}

func TestParams_Strings(t *testing.T) {
	p := Params{
		"yaml":  []any{"a", "b"},
		"typed": []string{"c"},
		"csv":   "d, e,,f",
		"mixed": []any{"a", 1},
	}

	got, err := p.Strings("yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = p.Strings("typed")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got)

	got, err = p.Strings("csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e", "f"}, got)

	got, err = p.Strings("absent")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = p.Strings("mixed")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
}

func TestParams_BoolAndDuration(t *testing.T) {
	p := Params{"tls": "true", "on": false, "timeout": "250ms", "secs": 3, "bad": "soon"}

	b, err := p.Bool("tls", false)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = p.Bool("on", true)
	require.NoError(t, err)
	assert.False(t, b)

	d, err := p.Duration("timeout", 0)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = p.Duration("secs", 0)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	d, err = p.Duration("absent", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = p.Duration("bad", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
}

func TestParams_CloneIsIndependent(t *testing.T) {
	p := Params{"host": "db"}
	c := p.Clone()
	c["host"] = "other"
	assert.Equal(t, "db", p["host"])
}
