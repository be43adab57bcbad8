package detection

// Options bundles the settings for every geometric stage.
type Options struct {
	Boxes         BoxOptions
	Dividers      DividerOptions
	Segments      SegmentOptions
	Relationships RelationshipOptions
}

// DefaultOptions returns the default settings for every stage.
func DefaultOptions() Options {
	return Options{
		Boxes:         DefaultBoxOptions(),
		Dividers:      DefaultDividerOptions(),
		Segments:      DefaultSegmentOptions(),
		Relationships: DefaultRelationshipOptions(),
	}
}
