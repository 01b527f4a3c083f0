package models

// Taxonomy kinds. Only categories are hierarchical.
const (
	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"
)

// Term is a named label independent of how it is used.
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TermTaxonomy scopes a term to one taxonomy and carries the denormalized
// relationship count. Count always equals the live number of
// term_relationships rows pointing at it.
type TermTaxonomy struct {
	ID          int64  `json:"id"`
	TermID      int64  `json:"term_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Taxonomy    string `json:"taxonomy"`
	Description string `json:"description,omitempty"`
	ParentID    int64  `json:"parent_id,omitempty"`
	Count       int64  `json:"count"`
}
