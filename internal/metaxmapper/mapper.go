// Package metaxmapper implements MetaxMapper.map from spec.md §4.3: a
// deterministic, total translation from a submission's DataCite metadata
// into the Metax research_dataset fields the orchestrator patches onto a
// draft dataset before publish. Grounded on original_source/
// metadata_backend/services/metax_mapper.py's field-by-field structure,
// generalized per spec.md §4.3 (ROR-resolved actor organizations,
// digit-tail/label field-of-science matching, full geoLocation WKT
// construction, funding references) where spec.md goes further than the
// original.
package metaxmapper

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

// RorClient is the subset of rorclient.Client the mapper needs to resolve
// an affiliation's preferred organisation name.
type RorClient interface {
	IsRorOrganisation(ctx context.Context, organisation string) (string, error)
}

// MetaxFieldsOfScience is the subset of metaxclient.Client the mapper
// falls back to when a subject doesn't resolve against the embedded
// fields_of_science.json snapshot (spec.md §4.3's "cached fields-of-
// science" via MetaxClient.getFieldsOfScience) — e.g. a taxonomy entry
// added to Metax after the embedded table was generated.
type MetaxFieldsOfScience interface {
	GetFieldsOfScience(ctx context.Context) ([]map[string]interface{}, error)
}

// Actor is a Metax creator/contributor/publisher entry. Metax permits
// exactly one organisation and one person per actor.
type Actor struct {
	Name         string `json:"name"`
	Role         string `json:"role"` // "creator", "contributor", "publisher", "rights_holder", "curator"
	Organization string `json:"organization,omitempty"`
}

// Temporal is a Metax PeriodOfTime entry derived from an "Other" DataCite date.
type Temporal struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"` // empty when the source date had a single token
}

// FieldOfScienceRef is the resolved Metax concept for one subject.
type FieldOfScienceRef struct {
	URI   string            `json:"identifier"`
	Label map[string]string `json:"pref_label,omitempty"`
}

// Spatial is one Metax `spatial` entry.
type Spatial struct {
	GeographicName string   `json:"geographic_name,omitempty"`
	ReferenceURL   string   `json:"reference_url,omitempty"`
	AsWKT          []string `json:"as_wkt,omitempty"`
}

// OtherIdentifier is one Metax `other_identifier` entry.
type OtherIdentifier struct {
	Notation          string `json:"notation"`
	IdentifierTypeURI string `json:"identifier_type"`
}

// Project is one Metax `is_output_of`/funding-bearing participating organization.
type Project struct {
	OrganizationName string    `json:"organization_name"`
	Funding          []Funding `json:"funding,omitempty"`
}

type Funding struct {
	FunderName string `json:"funder_name"`
	AwardURI   string `json:"award_uri,omitempty"`
	AwardTitle string `json:"award_title,omitempty"`
}

// MetaxFields is the complete translated document the orchestrator
// patches onto the Metax draft dataset.
type MetaxFields struct {
	Creators         []Actor             `json:"creator,omitempty"`
	Contributors     []Actor             `json:"contributor,omitempty"`
	RightsHolders    []Actor             `json:"rights_holder,omitempty"`
	Curators         []Actor             `json:"curator,omitempty"`
	Publisher        *Actor              `json:"publisher,omitempty"`
	Keywords         []string            `json:"keyword,omitempty"`
	FieldsOfScience  []FieldOfScienceRef `json:"field_of_science,omitempty"`
	Issued           string              `json:"issued,omitempty"`
	Temporal         []Temporal          `json:"temporal,omitempty"`
	LanguageURI      string              `json:"language,omitempty"`
	Projects         []Project           `json:"is_output_of,omitempty"`
	Spatial          []Spatial           `json:"spatial,omitempty"`
	OtherIdentifiers []OtherIdentifier   `json:"other_identifier,omitempty"`
}

// Mapper translates DataCite metadata into MetaxFields.
type Mapper struct {
	ror   RorClient
	ref   *ReferenceData
	now   func() time.Time
	metax MetaxFieldsOfScience
}

// New builds a Mapper. now defaults to time.Now; tests may override it
// through NewWithClock for deterministic Issued values.
func New(ror RorClient, ref *ReferenceData) *Mapper {
	return NewWithClock(ror, ref, time.Now)
}

func NewWithClock(ror RorClient, ref *ReferenceData, now func() time.Time) *Mapper {
	return &Mapper{ror: ror, ref: ref, now: now}
}

// SetMetaxFieldsOfScience wires the live Metax reference-data fetch as
// the cold-path fallback for field-of-science resolution. Without it,
// the mapper only ever consults the embedded static snapshot.
func (m *Mapper) SetMetaxFieldsOfScience(c MetaxFieldsOfScience) {
	m.metax = c
}

// liveFieldOfScience searches the live Metax fields-of-science list (the
// same "code"/"uri"/"label" shape as the embedded JSON) for an entry
// matching code (digit-tail accepted) or, failing that, label.
func (m *Mapper) liveFieldOfScience(ctx context.Context, code, label string) (FieldOfScience, bool) {
	if m.metax == nil {
		return FieldOfScience{}, false
	}
	results, err := m.metax.GetFieldsOfScience(ctx)
	if err != nil {
		return FieldOfScience{}, false
	}
	var live ReferenceData
	for _, r := range results {
		f := FieldOfScience{}
		if s, ok := r["code"].(string); ok {
			f.Code = s
		}
		if s, ok := r["uri"].(string); ok {
			f.URI = s
		}
		if lbl, ok := r["label"].(map[string]interface{}); ok {
			f.Label = map[string]string{}
			for lang, v := range lbl {
				if s, ok := v.(string); ok {
					f.Label[lang] = s
				}
			}
		}
		live.FieldsOfScience = append(live.FieldsOfScience, f)
	}
	if code != "" {
		if f, ok := live.LookupFieldOfScience(code); ok {
			return f, true
		}
	}
	if label != "" {
		if f, ok := live.LookupFieldOfScienceByLabel(label); ok {
			return f, true
		}
	}
	return FieldOfScience{}, false
}

// resolveFieldOfScience tries the embedded snapshot first (the fast,
// always-available path), then the live Metax reference-data endpoint
// if a MetaxFieldsOfScience client is wired.
func (m *Mapper) resolveFieldOfScience(ctx context.Context, code, label string) (FieldOfScience, bool) {
	if code != "" {
		if f, ok := m.ref.LookupFieldOfScience(code); ok {
			return f, true
		}
	}
	if label != "" {
		if f, ok := m.ref.LookupFieldOfScienceByLabel(label); ok {
			return f, true
		}
	}
	return m.liveFieldOfScience(ctx, code, label)
}

// Map runs every translation rule in spec.md §4.3 against meta, raising a
// *apperr.Error with Kind KindUser on any invalid input.
func (m *Mapper) Map(ctx context.Context, meta *store.DataciteMetadata) (*MetaxFields, error) {
	out := &MetaxFields{}

	creators, err := m.mapActors(ctx, meta.Creators, "creator")
	if err != nil {
		return nil, err
	}
	out.Creators = creators

	for _, c := range meta.Contributors {
		actor, err := m.mapActor(ctx, c, classifyContributorRole(c.ContributorType))
		if err != nil {
			return nil, err
		}
		switch actor.Role {
		case "rights_holder":
			out.RightsHolders = append(out.RightsHolders, actor)
		case "curator":
			out.Curators = append(out.Curators, actor)
		default:
			out.Contributors = append(out.Contributors, actor)
		}
	}

	if meta.Publisher != nil {
		org, err := m.resolveOrganization(ctx, meta.Publisher.Name)
		if err != nil {
			return nil, err
		}
		out.Publisher = &Actor{Name: meta.Publisher.Name, Role: "publisher", Organization: org}
		out.Projects = append(out.Projects, Project{OrganizationName: org})
	}

	keywords, fos, err := m.mapSubjects(ctx, meta.Subjects)
	if err != nil {
		return nil, err
	}
	out.Keywords = keywords
	out.FieldsOfScience = fos

	out.Issued = m.now().UTC().Format("2006-01-02")

	temporal, err := mapTemporal(meta.Dates)
	if err != nil {
		return nil, err
	}
	out.Temporal = temporal

	if meta.Language != "" {
		uri, ok := m.ref.LookupLanguage(meta.Language)
		if !ok {
			return nil, apperr.NewUser("unsupported DataCite language code %q", meta.Language)
		}
		out.LanguageURI = uri
	}

	out.Projects = append(out.Projects, m.mapFunding(meta.FundingReferences)...)

	out.Spatial = mapSpatial(meta.GeoLocations)

	out.OtherIdentifiers, err = m.mapOtherIdentifiers(meta.AlternateIdentifiers)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (m *Mapper) mapActors(ctx context.Context, actors []store.Actor, role string) ([]Actor, error) {
	out := make([]Actor, 0, len(actors))
	for _, a := range actors {
		actor, err := m.mapActor(ctx, a, role)
		if err != nil {
			return nil, err
		}
		out = append(out, actor)
	}
	return out, nil
}

func (m *Mapper) mapActor(ctx context.Context, a store.Actor, role string) (Actor, error) {
	if len(a.Affiliation) == 0 {
		return Actor{}, apperr.NewUser("actor %q is missing an affiliation", a.Name)
	}
	org, err := m.resolveOrganization(ctx, a.Affiliation[0].Name)
	if err != nil {
		return Actor{}, err
	}
	return Actor{Name: a.Name, Role: role, Organization: org}, nil
}

func (m *Mapper) resolveOrganization(ctx context.Context, name string) (string, error) {
	preferred, err := m.ror.IsRorOrganisation(ctx, name)
	if err != nil {
		return "", err
	}
	if preferred != "" {
		return preferred, nil
	}
	return name, nil
}

func classifyContributorRole(contributorType string) string {
	switch contributorType {
	case "Data Curator":
		return "curator"
	case "Rights Holder":
		return "rights_holder"
	default:
		return "contributor"
	}
}

// subjectCodeLabel splits the UI "code - label" subject format.
func subjectCodeLabel(s string) (code, label string, ok bool) {
	parts := strings.SplitN(s, " - ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// fieldOfScienceScheme is the YSO concept scheme every resolved field of
// science's valueUri/schemeUri is stamped with, per spec.md §4.2's SD
// subject enrichment ("scheme/uri/value/code via MetaxClient").
const fieldOfScienceScheme = "http://www.yso.fi/onto/okm-tieteenala/conceptscheme"

// EnrichDataciteSubjects resolves each subject's field-of-science concept
// (spec.md §4.2, invoked before SD's Pid.Publish) the same way mapSubjects
// does for the Metax keyword/field_of_science document: a subject already
// carrying a ValueURI is left untouched, a "code - label" subject is
// resolved by code, otherwise by full-text label match. An unresolvable
// subject is a UserError, never a silent drop.
func (m *Mapper) EnrichDataciteSubjects(ctx context.Context, subjects []store.Subject) ([]store.Subject, error) {
	out := make([]store.Subject, len(subjects))
	for i, s := range subjects {
		out[i] = s
		if s.ValueURI != "" {
			continue
		}

		code, _, _ := subjectCodeLabel(s.Subject)
		f, found := m.resolveFieldOfScience(ctx, code, s.Subject)
		if !found {
			return nil, apperr.NewUser("subject %q does not match a known field of science", s.Subject)
		}
		out[i].SchemeURI = fieldOfScienceScheme
		out[i].ValueURI = f.URI
		out[i].Classification = f.Code
	}
	return out, nil
}

func (m *Mapper) mapSubjects(ctx context.Context, subjects []store.Subject) ([]string, []FieldOfScienceRef, error) {
	keywords := make([]string, 0, len(subjects))
	fos := make([]FieldOfScienceRef, 0, len(subjects))
	for _, s := range subjects {
		keywords = append(keywords, s.Subject)

		if s.ValueURI != "" {
			fos = append(fos, FieldOfScienceRef{URI: s.ValueURI})
			continue
		}

		code, _, _ := subjectCodeLabel(s.Subject)
		f, found := m.resolveFieldOfScience(ctx, code, s.Subject)
		if !found {
			return nil, nil, apperr.NewUser("subject %q does not match a known field of science", s.Subject)
		}
		fos = append(fos, FieldOfScienceRef{URI: f.URI, Label: f.Label})
	}
	return keywords, fos, nil
}

func mapTemporal(dates []store.DateInfo) ([]Temporal, error) {
	var out []Temporal
	for _, d := range dates {
		if d.DateType != "Other" {
			continue
		}
		tokens := strings.Split(d.Date, "/")
		switch len(tokens) {
		case 1:
			start, err := normalizeDate(tokens[0])
			if err != nil {
				return nil, err
			}
			out = append(out, Temporal{StartDate: start})
		case 2:
			start, err := normalizeDate(tokens[0])
			if err != nil {
				return nil, err
			}
			end, err := normalizeDate(tokens[1])
			if err != nil {
				return nil, err
			}
			out = append(out, Temporal{StartDate: start, EndDate: end})
		default:
			return nil, apperr.NewUser("temporal date %q has an invalid number of '/'-separated tokens", d.Date)
		}
	}
	return out, nil
}

func normalizeDate(token string) (string, error) {
	token = strings.TrimSpace(token)
	switch len(token) {
	case 4:
		if _, err := strconv.Atoi(token); err != nil {
			return "", apperr.NewUser("invalid date token %q", token)
		}
		return token + "-01-01", nil
	case 7:
		if t, err := time.Parse("2006-01", token); err == nil {
			return t.Format("2006-01") + "-01", nil
		}
	case 10:
		if _, err := time.Parse("2006-01-02", token); err == nil {
			return token, nil
		}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, token); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", apperr.NewUser("invalid temporal date token %q", token)
}

func (m *Mapper) mapFunding(refs []store.FundingReference) []Project {
	if len(refs) == 0 {
		return nil
	}
	byFunder := map[string][]Funding{}
	var order []string
	for _, r := range refs {
		f := Funding{FunderName: r.FunderName, AwardURI: r.AwardURI, AwardTitle: r.AwardTitle}
		if _, seen := byFunder[r.FunderName]; !seen {
			order = append(order, r.FunderName)
		}
		byFunder[r.FunderName] = append(byFunder[r.FunderName], f)
	}
	sort.Strings(order)
	out := make([]Project, 0, len(order))
	for _, name := range order {
		out = append(out, Project{OrganizationName: name, Funding: byFunder[name]})
	}
	return out
}

func mapSpatial(locations []store.GeoLocation) []Spatial {
	out := make([]Spatial, 0, len(locations))
	for _, loc := range locations {
		s := Spatial{GeographicName: loc.GeoLocationPlace}

		if loc.GeoLocationPoint != nil {
			s.AsWKT = append(s.AsWKT, fmt.Sprintf("POINT(%s %s)",
				trimFloat(loc.GeoLocationPoint.PointLongitude), trimFloat(loc.GeoLocationPoint.PointLatitude)))
		}
		if loc.GeoLocationBox != nil {
			b := loc.GeoLocationBox
			s.AsWKT = append(s.AsWKT, fmt.Sprintf(
				"POLYGON((%s %s, %s %s, %s %s, %s %s, %s %s))",
				trimFloat(b.WestBoundLongitude), trimFloat(b.NorthBoundLatitude),
				trimFloat(b.EastBoundLongitude), trimFloat(b.NorthBoundLatitude),
				trimFloat(b.EastBoundLongitude), trimFloat(b.SouthBoundLatitude),
				trimFloat(b.WestBoundLongitude), trimFloat(b.SouthBoundLatitude),
				trimFloat(b.WestBoundLongitude), trimFloat(b.NorthBoundLatitude),
			))
		}
		for _, poly := range loc.GeoLocationPolygon {
			if len(poly.PolygonPoints) == 0 {
				continue
			}
			pts := poly.PolygonPoints
			if !sameGeoPoint(pts[0], pts[len(pts)-1]) {
				pts = append(pts, pts[0])
			}
			vertices := make([]string, 0, len(pts))
			for _, p := range pts {
				vertices = append(vertices, fmt.Sprintf("%s %s", trimFloat(p.PointLongitude), trimFloat(p.PointLatitude)))
			}
			s.AsWKT = append(s.AsWKT, fmt.Sprintf("POLYGON((%s))", strings.Join(vertices, ", ")))
			if poly.InPolygonPoint != nil {
				s.AsWKT = append(s.AsWKT, fmt.Sprintf("POINT(%s %s)",
					trimFloat(poly.InPolygonPoint.PointLongitude), trimFloat(poly.InPolygonPoint.PointLatitude)))
			}
		}
		out = append(out, s)
	}
	return out
}

func sameGeoPoint(a, b store.GeoPoint) bool {
	return a.PointLongitude == b.PointLongitude && a.PointLatitude == b.PointLatitude
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (m *Mapper) mapOtherIdentifiers(ids []store.AlternateIdentifier) ([]OtherIdentifier, error) {
	out := make([]OtherIdentifier, 0, len(ids))
	for _, id := range ids {
		uri, ok := m.ref.LookupIdentifierType(id.AlternateIdentifierType)
		if !ok {
			return nil, apperr.NewUser("unknown alternateIdentifierType %q", id.AlternateIdentifierType)
		}
		out = append(out, OtherIdentifier{Notation: id.AlternateIdentifier, IdentifierTypeURI: uri})
	}
	return out, nil
}
