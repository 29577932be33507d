package catalog

// Snapshot is an immutable, in-memory view of the products and categories
// needed for one evaluation. Lookups never fail: unknown identifiers simply
// resolve to "absent".
type Snapshot struct {
	products   map[string]*Product
	categories []Category

	categoryBySlug    map[string]string
	subCategoryBySlug map[string][]string
}

// NewSnapshot indexes the given products and categories. The slices are not
// retained for mutation; callers must not modify them afterwards.
func NewSnapshot(products []Product, categories []Category) *Snapshot {
	s := &Snapshot{
		products:          make(map[string]*Product, len(products)),
		categories:        categories,
		categoryBySlug:    make(map[string]string, len(categories)),
		subCategoryBySlug: make(map[string][]string),
	}
	for i := range products {
		s.products[products[i].ID] = &products[i]
	}
	for _, c := range categories {
		s.categoryBySlug[c.Slug] = c.ID
		for _, sc := range c.SubCategories {
			s.subCategoryBySlug[sc.Slug] = append(s.subCategoryBySlug[sc.Slug], sc.ID)
		}
	}
	return s
}

// Product returns the product with the given id.
func (s *Snapshot) Product(id string) (*Product, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.products[id]
	return p, ok
}

// Categories returns every category of the snapshot.
func (s *Snapshot) Categories() []Category {
	if s == nil {
		return nil
	}
	return s.categories
}

// CategoryIDBySlug resolves a category slug to its id.
func (s *Snapshot) CategoryIDBySlug(slug string) (string, bool) {
	if s == nil {
		return "", false
	}
	id, ok := s.categoryBySlug[slug]
	return id, ok
}

// SubCategoryIDsBySlug returns the ids of every subcategory carrying the
// slug, searched across all categories.
func (s *Snapshot) SubCategoryIDsBySlug(slug string) []string {
	if s == nil {
		return nil
	}
	return s.subCategoryBySlug[slug]
}
