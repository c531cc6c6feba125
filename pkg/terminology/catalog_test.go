package terminology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradePairing(t *testing.T) {
	cat := DefaultCatalog()

	cases := map[string]string{
		"High Grade":         "G3",
		"Low Grade":          "G2",
		"Intermediate Grade": "G1",
	}
	for raw, want := range cases {
		got, ok := cat.Grade(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := cat.Grade("unknown")
	assert.False(t, ok)
	_, ok = cat.Grade("Grade 2")
	assert.False(t, ok)

	for _, raw := range []string{"high grade", "HIGH GRADE", " Low Grade ", "Intermediate grade"} {
		_, ok = cat.Grade(raw)
		assert.False(t, ok, raw)
	}
}

func TestEthnicityExactMatch(t *testing.T) {
	cat := DefaultCatalog()

	code, ok := cat.Ethnicity("hispanic or latino")
	assert.True(t, ok)
	assert.Equal(t, 1, code)

	code, ok = cat.Ethnicity("not hispanic or latino")
	assert.True(t, ok)
	assert.Equal(t, 0, code)

	_, ok = cat.Ethnicity("unknown")
	assert.False(t, ok)
	_, ok = cat.Ethnicity("not reported")
	assert.False(t, ok)

	for _, raw := range []string{"Hispanic Or Latino", "  hispanic or latino ", "NOT HISPANIC OR LATINO"} {
		_, ok = cat.Ethnicity(raw)
		assert.False(t, ok, raw)
	}
}

func TestRace(t *testing.T) {
	cat := DefaultCatalog()

	concept, ok := cat.Race("black or african american")
	assert.True(t, ok)
	assert.Equal(t, "black", concept.Code)

	_, ok = cat.Race("White")
	assert.False(t, ok)

	_, ok = cat.Race("not reported")
	assert.False(t, ok)
}

func TestWeightsAndClasses(t *testing.T) {
	cat := DefaultCatalog()

	for grade, want := range map[string]float64{"G1": 1.25, "G2": 1.5, "G3": 1.75} {
		w, ok := cat.SeverityWeight(grade)
		assert.True(t, ok, grade)
		assert.Equal(t, want, w, grade)
	}

	assert.Equal(t, []string{"G1", "G2", "G3"}, cat.ClassNames())

	code, ok := cat.ClassCode("G3")
	assert.True(t, ok)
	assert.Equal(t, 2, code)

	name, ok := cat.ClassName(0)
	assert.True(t, ok)
	assert.Equal(t, "G1", name)

	_, ok = cat.ClassName(7)
	assert.False(t, ok)
}
