package cms

// ContentChanges describes a partial update to a content's live fields.
// Nil pointers leave the corresponding field untouched; Elements and
// Metadata replace wholesale when non-nil.
type ContentChanges struct {
	Title    *string
	Slug     *string
	Status   *ContentStatus
	Elements []Element
	Metadata map[string]any
}

// IsEmpty reports whether the change set touches nothing.
func (ch ContentChanges) IsEmpty() bool {
	return ch.Title == nil && ch.Slug == nil && ch.Status == nil &&
		ch.Elements == nil && ch.Metadata == nil
}

// Apply writes the change set onto the content.
func (ch ContentChanges) Apply(content *Content) {
	if ch.Title != nil {
		content.Title = *ch.Title
	}
	if ch.Slug != nil {
		content.Slug = *ch.Slug
	}
	if ch.Status != nil {
		content.Status = *ch.Status
	}
	if ch.Elements != nil {
		content.Elements = cloneElements(ch.Elements)
	}
	if ch.Metadata != nil {
		content.Metadata = deepCopyMap(ch.Metadata)
	}
}
