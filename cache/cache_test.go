package cache

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestLoadOnce(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	calls := 0
	loader := func(key string) (string, error) {
		calls++
		return "value of " + key, nil
	}
	v, err := Load("a", loader)
	is.NoErr(err)
	is.Equal(v, "value of a")
	v, err = Load("a", loader)
	is.NoErr(err)
	is.Equal(v, "value of a")
	is.Equal(calls, 1)

	Evict("a")
	_, err = Load("a", loader)
	is.NoErr(err)
	is.Equal(calls, 2)
}

func TestLoadErrorNotCached(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	boom := errors.New("boom")
	_, err := Load("b", func(string) (int, error) { return 0, boom })
	is.Equal(err, boom)
	v, err := Load("b", func(string) (int, error) { return 7, nil })
	is.NoErr(err)
	is.Equal(v, 7)
}

func TestLoadWrongType(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	_, err := Load("c", func(string) (int, error) { return 7, nil })
	is.NoErr(err)
	_, err = Load("c", func(string) (string, error) { return "", nil })
	is.True(err != nil)
}
