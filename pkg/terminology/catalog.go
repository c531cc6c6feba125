// Package terminology holds the fixed vocabulary of the HTAN DCIS metadata
// exports: column names, categorical code lists and grade weights.
package terminology

import "sort"

// Concept is one standardized code with its display label.
type Concept struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

type Catalog struct {
	grades      map[string]Concept
	ethnicities map[string]int
	races       map[string]Concept
	weights     map[string]float64
	classes     map[string]int
}

// DefaultCatalog returns the vocabulary used by the pipeline. The grade
// pairing is kept exactly as the upstream curation defined it.
func DefaultCatalog() Catalog {
	return Catalog{
		grades: map[string]Concept{
			"High Grade":         {Code: "G3", Display: "High Grade"},
			"Low Grade":          {Code: "G2", Display: "Low Grade"},
			"Intermediate Grade": {Code: "G1", Display: "Intermediate Grade"},
		},
		ethnicities: map[string]int{
			"hispanic or latino":     1,
			"not hispanic or latino": 0,
		},
		races: map[string]Concept{
			"white":                                     {Code: "white", Display: "White"},
			"black or african american":                 {Code: "black", Display: "Black or African American"},
			"asian":                                     {Code: "asian", Display: "Asian"},
			"american indian or alaska native":          {Code: "aian", Display: "American Indian or Alaska Native"},
			"native hawaiian or other pacific islander": {Code: "nhopi", Display: "Native Hawaiian or Other Pacific Islander"},
		},
		weights: map[string]float64{
			"G1": 1.25,
			"G2": 1.5,
			"G3": 1.75,
		},
		classes: map[string]int{
			"G1": 0,
			"G2": 1,
			"G3": 2,
		},
	}
}

// Lookups match the upstream labels exactly. A label that differs only in
// case or surrounding space is unrecognized and reports false.

// Grade maps a raw tumor grade label to G1/G2/G3. Unknown labels, including
// "unknown", report false.
func (c Catalog) Grade(raw string) (string, bool) {
	concept, ok := c.grades[raw]
	return concept.Code, ok
}

// Ethnicity maps a raw ethnicity label to 1 (hispanic or latino) or 0.
func (c Catalog) Ethnicity(raw string) (int, bool) {
	code, ok := c.ethnicities[raw]
	return code, ok
}

func (c Catalog) Race(raw string) (Concept, bool) {
	concept, ok := c.races[raw]
	return concept, ok
}

func (c Catalog) SeverityWeight(grade string) (float64, bool) {
	w, ok := c.weights[grade]
	return w, ok
}

func (c Catalog) ClassCode(grade string) (int, bool) {
	code, ok := c.classes[grade]
	return code, ok
}

func (c Catalog) ClassName(code int) (string, bool) {
	for name, k := range c.classes {
		if k == code {
			return name, true
		}
	}
	return "", false
}

// ClassNames lists the grade labels ordered by class code.
func (c Catalog) ClassNames() []string {
	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return c.classes[names[i]] < c.classes[names[j]] })
	return names
}
