// Reference data supplements spec.md §4.3's "cached fields-of-science"
// with the static table the original build derives offline from a YSO
// taxonomy RDF dump (original_source/scripts/taxonomy/taxonomy.py,
// scripts/metax_mappings/create_metax_references.py). Rather than
// re-running that offline fetch, the same shape is captured as embedded
// JSON and loaded once at startup.
package metaxmapper

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed data/fields_of_science.json data/identifier_types.json data/languages.json
var embeddedData embed.FS

// FieldOfScience is one entry of the YSO okm-tieteenala taxonomy.
type FieldOfScience struct {
	Code  string            `json:"code"`
	URI   string            `json:"uri"`
	Label map[string]string `json:"label"`
}

// ReferenceData bundles every static table the mapper consults.
type ReferenceData struct {
	FieldsOfScience []FieldOfScience
	IdentifierTypes map[string]string // lowercase DataCite type -> Metax code URI
	Languages       map[string]string // ISO language code -> lexvo URI
}

var digitTail = regexp.MustCompile(`(\d+)$`)
var punctuation = regexp.MustCompile(`[^\w]+`)

// Load reads the embedded reference tables. It is called once at startup;
// a decode failure is a packaging defect, not a runtime condition, so
// callers treat an error here as fatal.
func Load() (*ReferenceData, error) {
	return loadFromFS(embeddedData, "data")
}

func loadFromFS(fsys interface {
	ReadFile(name string) ([]byte, error)
}, dir string) (*ReferenceData, error) {
	rd := &ReferenceData{}

	fos, err := fsys.ReadFile(dir + "/fields_of_science.json")
	if err != nil {
		return nil, fmt.Errorf("metaxmapper: read fields_of_science.json: %w", err)
	}
	if err := json.Unmarshal(fos, &rd.FieldsOfScience); err != nil {
		return nil, fmt.Errorf("metaxmapper: parse fields_of_science.json: %w", err)
	}

	idTypes, err := fsys.ReadFile(dir + "/identifier_types.json")
	if err != nil {
		return nil, fmt.Errorf("metaxmapper: read identifier_types.json: %w", err)
	}
	if err := json.Unmarshal(idTypes, &rd.IdentifierTypes); err != nil {
		return nil, fmt.Errorf("metaxmapper: parse identifier_types.json: %w", err)
	}

	langs, err := fsys.ReadFile(dir + "/languages.json")
	if err != nil {
		return nil, fmt.Errorf("metaxmapper: read languages.json: %w", err)
	}
	if err := json.Unmarshal(langs, &rd.Languages); err != nil {
		return nil, fmt.Errorf("metaxmapper: parse languages.json: %w", err)
	}
	return rd, nil
}

// LoadTestdata reads the reference tables from testdata/ for unit tests
// that want a smaller, stable fixture instead of the shipped data set.
func LoadTestdata(fsys embed.FS) (*ReferenceData, error) {
	return loadFromFS(fsys, "testdata")
}

// LookupFieldOfScience resolves subjectCode (the part before " - " in a
// "code - label" subject string, e.g. "111") against the taxonomy,
// accepting a digit-tail match (111 ~ ta111) per spec.md §4.3.
func (rd *ReferenceData) LookupFieldOfScience(subjectCode string) (FieldOfScience, bool) {
	target := digitTail.FindString(strings.TrimSpace(subjectCode))
	if target == "" {
		target = strings.TrimSpace(subjectCode)
	}
	for _, f := range rd.FieldsOfScience {
		if digitTail.FindString(f.Code) == target {
			return f, true
		}
	}
	return FieldOfScience{}, false
}

// LookupFieldOfScienceByLabel resolves label against every language's
// pref_label, case/punctuation-insensitive.
func (rd *ReferenceData) LookupFieldOfScienceByLabel(label string) (FieldOfScience, bool) {
	target := normalizeLabel(label)
	for _, f := range rd.FieldsOfScience {
		for _, l := range f.Label {
			if normalizeLabel(l) == target {
				return f, true
			}
		}
	}
	return FieldOfScience{}, false
}

func normalizeLabel(s string) string {
	return punctuation.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// LookupIdentifierType resolves a DataCite alternateIdentifierType (e.g.
// "Local accession number") to its Metax identifier_type code URI.
func (rd *ReferenceData) LookupIdentifierType(t string) (string, bool) {
	uri, ok := rd.IdentifierTypes[strings.ToLower(strings.TrimSpace(t))]
	return uri, ok
}

// LookupLanguage resolves an ISO language code to its lexvo URI.
func (rd *ReferenceData) LookupLanguage(code string) (string, bool) {
	uri, ok := rd.Languages[strings.ToLower(strings.TrimSpace(code))]
	return uri, ok
}
