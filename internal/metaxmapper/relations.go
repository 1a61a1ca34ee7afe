// Study/dataset cross-relation mapping, supplementing spec.md §4.3 per
// original_source/metadata_backend/services/metax_mapper.py's
// _map_relations/_map_is_output_of: a FEGA submission's study object
// gains a `relation` entry per sibling dataset, and each dataset gains an
// `is_output_of` entry pointing back at the study.
package metaxmapper

// Relation is one Metax `relation` entry a study object carries toward a
// sibling dataset in the same submission.
type Relation struct {
	DatasetMetaxID string
}

// IsOutputOf is the Metax `is_output_of` entry a dataset object carries
// back toward the study that produced it.
type IsOutputOf struct {
	StudyTitle   string
	StudyMetaxID string
	Organizations []string
}

// MapRelations builds the study-side relation list, one per dataset
// object already registered in the same submission.
func MapRelations(datasetMetaxIDs []string) []Relation {
	out := make([]Relation, 0, len(datasetMetaxIDs))
	for _, id := range datasetMetaxIDs {
		out = append(out, Relation{DatasetMetaxID: id})
	}
	return out
}

// MapIsOutputOf builds the dataset-side back-reference to its study,
// carrying the organizations collected while mapping the dataset's own
// actors (mirrors the original's accumulation of `self.affiliations`).
func MapIsOutputOf(studyTitle, studyMetaxID string, mappedActors []Actor) IsOutputOf {
	seen := map[string]bool{}
	var orgs []string
	for _, a := range mappedActors {
		if a.Organization == "" || seen[a.Organization] {
			continue
		}
		seen[a.Organization] = true
		orgs = append(orgs, a.Organization)
	}
	return IsOutputOf{StudyTitle: studyTitle, StudyMetaxID: studyMetaxID, Organizations: orgs}
}
