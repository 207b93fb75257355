package resource

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedResourceKeys = map[string]bool{
	"table":     true,
	"owner":     true,
	"parent":    true,
	"populate":  true,
	"fields":    true,
	"relations": true,
}

var allowedParentKeys = map[string]bool{
	"param":    true,
	"field":    true,
	"resource": true,
	"owned":    true,
}

var allowedFieldKeys = map[string]bool{
	"name":       true,
	"column":     true,
	"type":       true,
	"required":   true,
	"unique":     true,
	"hidden":     true,
	"enum":       true,
	"default":    true,
	"max_length": true,
	"min_length": true,
	"message":    true,
	"read_only":  true,
}

var allowedRelationKeys = map[string]bool{
	"type":     true,
	"resource": true,
	"fk":       true,
	"select":   true,
}

// Разрешённые значения для type в полях
var allowedFieldTypeValues = map[string]bool{
	"string": true,
	"text":   true,
	"int":    true,
	"float":  true,
	"bool":   true,
	"time":   true,
	"uuid":   true,
	"array":  true,
}

var allowedRelationTypeValues = map[string]bool{
	BelongsTo: true,
	HasMany:   true,
}

// validateYAMLNode проверяет ключи документа ресурса до декодирования
func validateYAMLNode(node *yaml.Node, kind string) error {
	switch kind {
	case "resource":
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("resource must be a mapping (line %d)", node.Line)
		}
		return walkMapping(node, allowedResourceKeys, func(key string, val *yaml.Node) error {
			switch key {
			case "parent":
				return validateYAMLNode(val, "parent")
			case "fields":
				if val.Kind != yaml.SequenceNode {
					return fmt.Errorf("fields must be a list (line %d)", val.Line)
				}
				for _, item := range val.Content {
					if err := validateYAMLNode(item, "field"); err != nil {
						return err
					}
				}
			case "relations":
				if val.Kind != yaml.MappingNode {
					return fmt.Errorf("relations must be a mapping (line %d)", val.Line)
				}
				for i := 0; i+1 < len(val.Content); i += 2 {
					if err := validateYAMLNode(val.Content[i+1], "relation"); err != nil {
						return fmt.Errorf("relation %s: %w", val.Content[i].Value, err)
					}
				}
			}
			return nil
		})
	case "parent":
		return walkMapping(node, allowedParentKeys, nil)
	case "field":
		return walkMapping(node, allowedFieldKeys, func(key string, val *yaml.Node) error {
			if key == "type" && !allowedFieldTypeValues[val.Value] {
				return fmt.Errorf("unknown field type %q (line %d)", val.Value, val.Line)
			}
			return nil
		})
	case "relation":
		return walkMapping(node, allowedRelationKeys, func(key string, val *yaml.Node) error {
			if key == "type" && !allowedRelationTypeValues[val.Value] {
				return fmt.Errorf("unknown relation type %q (line %d)", val.Value, val.Line)
			}
			return nil
		})
	}
	return fmt.Errorf("unknown node kind %s", kind)
}

func walkMapping(node *yaml.Node, allowed map[string]bool, visit func(string, *yaml.Node) error) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping (line %d)", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !allowed[key] {
			return fmt.Errorf("unknown key %q (line %d)", key, node.Content[i].Line)
		}
		if visit != nil {
			if err := visit(key, node.Content[i+1]); err != nil {
				return err
			}
		}
	}
	return nil
}
