package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSearchPath(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/wallet":                "postgres://u:p@db:5432/wallet?search_path=s1",
		"postgresql://db/wallet?sslmode=disable":       "postgresql://db/wallet?sslmode=disable&search_path=s1",
		"host=db user=u dbname=wallet sslmode=disable": "host=db user=u dbname=wallet sslmode=disable search_path=s1",
	}
	for in, want := range cases {
		assert.Equal(t, want, withSearchPath(in, "s1"), in)
	}
}
