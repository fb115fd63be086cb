// Package normalizer maps loosely written requirement labels, values and
// platform tokens onto the fixed vocabulary stored in records.
package normalizer

// Processor turns one raw label/value pair into a canonical field entry.
type Processor struct {
	mapper *FieldMapper
}

// NewProcessor creates a processor with the default field rules.
func NewProcessor() *Processor {
	return &Processor{
		mapper: NewFieldMapper(DefaultFieldRules()),
	}
}

// NewProcessorWithMapper creates a processor around a custom mapper.
func NewProcessorWithMapper(mapper *FieldMapper) *Processor {
	return &Processor{mapper: mapper}
}

// Mapper returns the field mapper in use.
func (p *Processor) Mapper() *FieldMapper {
	return p.mapper
}

// Process maps label to its canonical key and cleans value. ok is false when
// the label cannot be mapped or the cleaned value is empty.
func (p *Processor) Process(label, value string) (key, cleaned string, ok bool) {
	key, mapped := p.mapper.Map(label)
	cleaned = CleanValue(value)

	if !mapped || cleaned == "" {
		return key, cleaned, false
	}

	return key, cleaned, true
}
