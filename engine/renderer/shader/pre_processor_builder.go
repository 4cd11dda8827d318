package shader

// PreProcessorBuilderOption is a functional option for configuring a PreProcessor.
type PreProcessorBuilderOption func(p *preProcessor)

// WithInclude registers a named WGSL snippet for @oxy:include and @oxy:group annotations.
//
// Parameters:
//   - name: the include name used in annotations
//   - typeName: the WGSL type the snippet declares, empty for function-only snippets
//   - source: the WGSL source
//
// Returns:
//   - PreProcessorBuilderOption: option function to apply
func WithInclude(name, typeName, source string) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.includeRegistry[AnnotationArg(name)] = registryEntry{Source: source, Type: typeName}
	}
}

// WithDefines adds compile-time values for @oxy:if and @oxy:defines annotations.
// Later options overwrite earlier values of the same name.
//
// Parameters:
//   - defines: the define name to value map
//
// Returns:
//   - PreProcessorBuilderOption: option function to apply
func WithDefines(defines map[string]string) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		for k, v := range defines {
			p.defines[k] = v
		}
	}
}
