package models

// FunctionDeclaration describes one tool the model may call. The full set is
// sent with every chat request.
type FunctionDeclaration struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters defines the JSON Schema for function parameters
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// Schema returns the parameters as a plain JSON-schema map, the shape most
// provider SDKs accept for an untyped schema field.
func (p Parameters) Schema() map[string]interface{} {
	required := p.Required
	if required == nil {
		required = []string{}
	}
	properties := p.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}
	return map[string]interface{}{
		"type":       p.Type,
		"properties": properties,
		"required":   required,
	}
}

// PropertyType returns the declared JSON type of a parameter, or "" when the
// parameter is not declared or carries no type.
func (p Parameters) PropertyType(name string) string {
	prop, ok := p.Properties[name].(map[string]interface{})
	if !ok {
		return ""
	}
	t, _ := prop["type"].(string)
	return t
}
