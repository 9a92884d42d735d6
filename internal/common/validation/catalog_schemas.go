package validation

// Catalog kinds as served by the configuration source.
const (
	KindQuestions  = "questions"
	KindBlueprints = "blueprints"
	KindTemplates  = "templates"
	KindOutputs    = "outputs"
	KindResearch   = "research"
)

// CatalogSchemas holds the JSON schema each catalog array must satisfy.
var CatalogSchemas = map[string]string{
	KindQuestions: `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "text", "category", "inputType"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "text": {"type": "string"},
      "category": {"type": "string"},
      "inputType": {"enum": ["text", "textarea", "select", "multiselect", "number", "date"]},
      "helpText": {"type": "string"},
      "options": {"type": "array", "items": {"type": "string"}},
      "validationRules": {
        "type": "object",
        "properties": {
          "required": {"type": "boolean"},
          "minLength": {"type": "integer", "minimum": 0},
          "maxLength": {"type": "integer", "minimum": 0},
          "min": {"type": "number"},
          "max": {"type": "number"},
          "pattern": {"type": "string"},
          "allowedValues": {"type": "array"}
        }
      },
      "conditionalLogic": {
        "type": "object",
        "properties": {
          "showIf": {"$ref": "#/definitions/condition"},
          "hideIf": {"$ref": "#/definitions/condition"},
          "dependsOn": {"type": "string"}
        }
      }
    }
  },
  "definitions": {
    "condition": {
      "type": "object",
      "required": ["questionId"],
      "properties": {"questionId": {"type": "string", "minLength": 1}}
    }
  }
}`,
	KindBlueprints: `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "version", "sections"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "version": {"type": "string", "minLength": 1},
      "sections": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["id", "questionIds"],
          "properties": {
            "id": {"type": "string"},
            "title": {"type": "string"},
            "questionIds": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    }
  }
}`,
	KindTemplates: `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "locale": {"type": "string"},
      "path": {"type": "string"},
      "body": {"type": "string"}
    },
    "anyOf": [{"required": ["path"]}, {"required": ["body"]}]
  }
}`,
	KindOutputs: `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "templateId"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "name": {"type": "string"},
      "templateId": {"type": "string", "minLength": 1},
      "formats": {"type": "array", "items": {"enum": ["md", "docx", "pdf"]}},
      "sections": {"type": "array", "items": {"type": "string"}}
    }
  }
}`,
	KindResearch: `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "area", "label"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "area": {"type": "string", "minLength": 1},
      "label": {"type": "string"},
      "dependsOn": {"type": "array", "items": {"type": "string"}},
      "outputKey": {"type": "string"}
    }
  }
}`,
}

// ValidateCatalog checks a decoded catalog document against its kind's schema.
// Unknown kinds always validate.
func ValidateCatalog(kind string, document interface{}) (*ValidationResult, error) {
	schema, ok := CatalogSchemas[kind]
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}
	return Validate(schema, document)
}
