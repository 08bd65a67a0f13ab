package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionPath(t *testing.T) {
	assert.Equal(t, "year=2018/month=11", PartitionPath([]PartitionValue{Int("year", 2018), Int("month", 11)}))
	assert.Equal(t, "year=0/artist_id=__HIVE_DEFAULT_PARTITION__", PartitionPath([]PartitionValue{Int("year", 0), String("artist_id", "")}))
	assert.Equal(t, "", PartitionPath(nil))
}

func TestEscapePathName(t *testing.T) {
	cases := map[string]string{
		"ARJIE2Y1187B994AB7": "ARJIE2Y1187B994AB7",
		"a/b":                "a%2Fb",
		"x=y":                "x%3Dy",
		"100%":               "100%25",
		"tab\there":          "tab%09here",
		"Beyoncé":            "Beyoncé",
	}
	for in, want := range cases {
		got := EscapePathName(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, in, UnescapePathName(got), in)
	}
}
