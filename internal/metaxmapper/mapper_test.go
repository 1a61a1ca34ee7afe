package metaxmapper

import (
	"context"
	"embed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

//go:embed testdata/fields_of_science.json testdata/identifier_types.json testdata/languages.json
var testdataFS embed.FS

type stubRor struct {
	resolved map[string]string
}

func (s *stubRor) IsRorOrganisation(ctx context.Context, organisation string) (string, error) {
	return s.resolved[organisation], nil
}

func fixedClock() time.Time {
	return time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
}

func newTestMapper(t *testing.T, ror RorClient) *Mapper {
	t.Helper()
	rd, err := LoadTestdata(testdataFS)
	require.NoError(t, err)
	return NewWithClock(ror, rd, fixedClock)
}

func TestMapActorsRequiresAffiliation(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{Creators: []store.Actor{{Name: "A"}}}
	_, err := m.Map(context.Background(), meta)
	require.Error(t, err)
}

func TestMapActorsResolvesOrganizationViaRor(t *testing.T) {
	ror := &stubRor{resolved: map[string]string{"Academy of Medicine": "Academy of Medicine"}}
	m := newTestMapper(t, ror)
	meta := &store.DataciteMetadata{
		Creators: []store.Actor{{Name: "A", Affiliation: []store.Affiliation{{Name: "Academy of Medicine"}}}},
	}
	out, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, out.Creators, 1)
	assert.Equal(t, "Academy of Medicine", out.Creators[0].Organization)
}

func TestMapSubjectsCodeLabelFormat(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{Subjects: []store.Subject{{Subject: "111 - Mathematics"}}}
	out, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, out.FieldsOfScience, 1)
	assert.Equal(t, "http://www.yso.fi/onto/okm-tieteenala/ta111", out.FieldsOfScience[0].URI)
	assert.Equal(t, []string{"111 - Mathematics"}, out.Keywords)
}

func TestMapSubjectsUnknownIsUserError(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{Subjects: []store.Subject{{Subject: "999 - Unknown field"}}}
	_, err := m.Map(context.Background(), meta)
	require.Error(t, err)
}

func TestMapTemporalSingleAndRangeTokens(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{Dates: []store.DateInfo{
		{Date: "2020", DateType: "Other"},
		{Date: "2021-02/2021-05-10", DateType: "Other"},
		{Date: "2019-01-01", DateType: "Issued"},
	}}
	out, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, out.Temporal, 2)
	assert.Equal(t, "2020-01-01", out.Temporal[0].StartDate)
	assert.Equal(t, "2021-02-01", out.Temporal[1].StartDate)
	assert.Equal(t, "2021-05-10", out.Temporal[1].EndDate)
}

func TestMapTemporalInvalidTokenCount(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{Dates: []store.DateInfo{{Date: "2020/2021/2022", DateType: "Other"}}}
	_, err := m.Map(context.Background(), meta)
	require.Error(t, err)
}

func TestMapLanguageUnknownIsUserError(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{Language: "zz"}
	_, err := m.Map(context.Background(), meta)
	require.Error(t, err)
}

func TestMapSpatialPointAndBox(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{GeoLocations: []store.GeoLocation{
		{GeoLocationPoint: &store.GeoPoint{PointLongitude: 10, PointLatitude: 20}},
		{GeoLocationBox: &store.GeoBox{WestBoundLongitude: 0, EastBoundLongitude: 1, SouthBoundLatitude: 0, NorthBoundLatitude: 1}},
	}}
	out, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, out.Spatial, 2)
	assert.Equal(t, "POINT(10 20)", out.Spatial[0].AsWKT[0])
	assert.Contains(t, out.Spatial[1].AsWKT[0], "POLYGON((0 1, 1 1, 1 0, 0 0, 0 1))")
}

func TestMapSpatialPolygonClosesRing(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{GeoLocations: []store.GeoLocation{
		{GeoLocationPolygon: []store.GeoPolygonEntry{{PolygonPoints: []store.GeoPoint{
			{PointLongitude: 0, PointLatitude: 0},
			{PointLongitude: 1, PointLatitude: 0},
			{PointLongitude: 1, PointLatitude: 1},
		}}}},
	}}
	out, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, out.Spatial, 1)
	assert.Equal(t, "POLYGON((0 0, 1 0, 1 1, 0 0))", out.Spatial[0].AsWKT[0])
}

func TestMapOtherIdentifiersUnknownType(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{AlternateIdentifiers: []store.AlternateIdentifier{
		{AlternateIdentifier: "x", AlternateIdentifierType: "Nonsense"},
	}}
	_, err := m.Map(context.Background(), meta)
	require.Error(t, err)
}

func TestMapOtherIdentifiersLocalAccessionNumber(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	meta := &store.DataciteMetadata{AlternateIdentifiers: []store.AlternateIdentifier{
		{AlternateIdentifier: "sub-1", AlternateIdentifierType: "Local accession number"},
	}}
	out, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, out.OtherIdentifiers, 1)
	assert.Equal(t, "sub-1", out.OtherIdentifiers[0].Notation)
}

func TestMapIssuedIsDeterministic(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	out, err := m.Map(context.Background(), &store.DataciteMetadata{})
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31", out.Issued)
}

func TestMapIsIdempotentAcrossCalls(t *testing.T) {
	m := newTestMapper(t, &stubRor{resolved: map[string]string{"Org": "Org"}})
	meta := &store.DataciteMetadata{
		Creators: []store.Actor{{Name: "A", Affiliation: []store.Affiliation{{Name: "Org"}}}},
		Subjects: []store.Subject{{Subject: "111 - Mathematics"}},
	}
	first, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	second, err := m.Map(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMapIsOutputOfDeduplicatesOrganizations(t *testing.T) {
	actors := []Actor{{Organization: "Org A"}, {Organization: "Org A"}, {Organization: "Org B"}}
	out := MapIsOutputOf("Study Title", "metax-1", actors)
	assert.Equal(t, []string{"Org A", "Org B"}, out.Organizations)
}

func TestMapRelationsOnePerDataset(t *testing.T) {
	out := MapRelations([]string{"m1", "m2"})
	require.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].DatasetMetaxID)
}

func TestEnrichDataciteSubjectsByCode(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	out, err := m.EnrichDataciteSubjects(context.Background(), []store.Subject{{Subject: "111 - Mathematics"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "http://www.yso.fi/onto/okm-tieteenala/ta111", out[0].ValueURI)
	assert.Equal(t, "ta111", out[0].Classification)
	assert.Equal(t, fieldOfScienceScheme, out[0].SchemeURI)
}

func TestEnrichDataciteSubjectsLeavesExistingValueURI(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	out, err := m.EnrichDataciteSubjects(context.Background(), []store.Subject{{Subject: "custom", ValueURI: "http://example.com/x"}})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/x", out[0].ValueURI)
	assert.Empty(t, out[0].SchemeURI)
}

func TestEnrichDataciteSubjectsUnknownIsUserError(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	_, err := m.EnrichDataciteSubjects(context.Background(), []store.Subject{{Subject: "999 - Unknown field"}})
	require.Error(t, err)
}

type stubMetaxFieldsOfScience struct {
	results []map[string]interface{}
	calls   int
}

func (s *stubMetaxFieldsOfScience) GetFieldsOfScience(ctx context.Context) ([]map[string]interface{}, error) {
	s.calls++
	return s.results, nil
}

func TestEnrichDataciteSubjectsFallsBackToLiveMetaxFieldsOfScience(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	live := &stubMetaxFieldsOfScience{results: []map[string]interface{}{
		{"code": "ta999", "uri": "http://www.yso.fi/onto/okm-tieteenala/ta999", "label": map[string]interface{}{"en": "Unknown field"}},
	}}
	m.SetMetaxFieldsOfScience(live)

	out, err := m.EnrichDataciteSubjects(context.Background(), []store.Subject{{Subject: "999 - Unknown field"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "http://www.yso.fi/onto/okm-tieteenala/ta999", out[0].ValueURI)
	assert.Equal(t, 1, live.calls)
}

func TestEnrichDataciteSubjectsStillErrorsWhenLiveLookupAlsoMisses(t *testing.T) {
	m := newTestMapper(t, &stubRor{})
	m.SetMetaxFieldsOfScience(&stubMetaxFieldsOfScience{})
	_, err := m.EnrichDataciteSubjects(context.Background(), []store.Subject{{Subject: "999 - Unknown field"}})
	require.Error(t, err)
}
