package card

// Patch carries the editable fields returned by an optimize or refine call.
// A nil field means "unchanged".
type Patch struct {
	Title   *string `json:"title,omitempty"`
	Type    *string `json:"type,omitempty"`
	Content *string `json:"content,omitempty"`
}

// PatchFromMap picks the string-valued title, type and content keys out of a
// decoded model response. Anything else, including id and date, is dropped.
func PatchFromMap(m map[string]any) Patch {
	var p Patch
	if v, ok := m["title"].(string); ok {
		p.Title = &v
	}
	if v, ok := m["type"].(string); ok {
		p.Type = &v
	}
	if v, ok := m["content"].(string); ok {
		p.Content = &v
	}
	return p
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Type == nil && p.Content == nil
}

// HasContent reports whether the patch sets a non-empty content body.
func (p Patch) HasContent() bool {
	return p.Content != nil && *p.Content != ""
}

// Apply returns a copy of c with the patch's set fields replaced.
// ID and Date are never touched.
func (c Card) Apply(p Patch) Card {
	out := c
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	return out
}

// FromMap builds a brand new card from one element of a generation response.
// Model-supplied id and date are ignored.
func FromMap(m map[string]any, id string, date int64) Card {
	c := Card{ID: id, Date: date}
	return c.Apply(PatchFromMap(m))
}
