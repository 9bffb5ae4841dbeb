package scale

// EncodeStructure appends a canonical byte description of the shape itself
// (not of a value) to e. Two shapes that would accept and produce the same
// wire bytes for the same values yield the same description; any change in
// kind, element, length, field name, field order, variant name or variant
// index changes it. Schema digests are built from these descriptions.
func (s *Shape) EncodeStructure(e *Encoder) {
	e.WriteU8(uint8(s.Kind))
	switch s.Kind {
	case KindSequence, KindOption:
		s.Elem.EncodeStructure(e)
	case KindArray:
		e.WriteCompact(uint64(s.Len))
		s.Elem.EncodeStructure(e)
	case KindComposite:
		e.WriteCompact(uint64(len(s.Fields)))
		for _, f := range s.Fields {
			e.WriteString(f.Name)
			f.Shape.EncodeStructure(e)
		}
	case KindVariant:
		e.WriteCompact(uint64(len(s.Variants)))
		for _, v := range s.Variants {
			e.WriteString(v.Name)
			e.WriteU8(v.Index)
			e.WriteCompact(uint64(len(v.Fields)))
			for _, f := range v.Fields {
				e.WriteString(f.Name)
				f.Shape.EncodeStructure(e)
			}
		}
	}
}
