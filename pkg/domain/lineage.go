package domain

// Lineage is an asset together with its split ancestry. Ancestors are ordered
// nearest parent first; descendants are breadth-first from the asset.
type Lineage struct {
	Asset       Asset   `json:"asset"`
	Ancestors   []Asset `json:"ancestors"`
	Descendants []Asset `json:"descendants"`
}

// IDs returns every asset id in the lineage, root-most ancestor first.
func (l Lineage) IDs() []string {
	ids := make([]string, 0, len(l.Ancestors)+1+len(l.Descendants))
	for i := len(l.Ancestors) - 1; i >= 0; i-- {
		ids = append(ids, l.Ancestors[i].ID)
	}
	ids = append(ids, l.Asset.ID)
	for _, d := range l.Descendants {
		ids = append(ids, d.ID)
	}
	return ids
}
