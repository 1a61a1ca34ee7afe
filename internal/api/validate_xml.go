package api

import (
	"encoding/xml"
	"io"
	"strings"
)

// validateWellFormed checks that content parses as well-formed XML,
// the structural check this backend performs in place of the original's
// full XSD schema validation engine (out of scope per spec.md's
// non-goals: "no XML parsing/validation engine").
func validateWellFormed(content string) error {
	dec := xml.NewDecoder(strings.NewReader(content))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
