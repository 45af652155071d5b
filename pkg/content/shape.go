package content

// Shape names the JSON document a text request expects back.
type Shape string

const (
	ShapeOutline     Shape = "outline"
	ShapeWorld       Shape = "world"
	ShapeSegment     Shape = "segment"
	ShapeExamination Shape = "examination"
	ShapeFeasibility Shape = "feasibility"
)

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	_, ok := schemas[s]
	return ok
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func list(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

var stageSchema = object(map[string]any{
	"title":       str("Short stage title"),
	"description": str("What happens during this stage"),
	"objective":   str("What the player must accomplish to finish the stage"),
}, "title", "description", "objective")

var choiceSchema = object(map[string]any{
	"text":                   str("Choice label shown to the player"),
	"outcomePrompt":          str("Instruction describing what happens if chosen"),
	"signalsStageCompletion": boolean("True when choosing this completes the current stage"),
	"leadsToFailure":         boolean("True when choosing this ends the adventure in failure"),
}, "text", "outcomePrompt", "signalsStageCompletion", "leadsToFailure")

var schemas = map[Shape]map[string]any{
	ShapeOutline: object(map[string]any{
		"title":       str("Adventure title"),
		"overallGoal": str("The goal of the whole adventure"),
		"stages": map[string]any{
			"type":     "array",
			"items":    stageSchema,
			"minItems": 3,
			"maxItems": 3,
		},
	}, "title", "overallGoal", "stages"),
	ShapeWorld: object(map[string]any{
		"worldName":                   str("Name of the world"),
		"genreClarification":          str("How the genre is interpreted in this world"),
		"keyEnvironmentalFeatures":    list("Notable places and terrain", str("")),
		"dominantSocietiesOrFactions": list("Powers and groups", str("")),
		"uniqueCreaturesOrMonsters":   list("Creatures found here", str("")),
		"magicSystemOverview":         str("How magic or technology works"),
		"briefHistoryHook":            str("A short piece of history that matters to the story"),
		"culturalNormsOrTaboos":       list("Customs and prohibitions", str("")),
	}, "worldName", "genreClarification", "keyEnvironmentalFeatures", "dominantSocietiesOrFactions",
		"uniqueCreaturesOrMonsters", "magicSystemOverview", "briefHistoryHook", "culturalNormsOrTaboos"),
	ShapeSegment: object(map[string]any{
		"sceneDescription":       str("Second-person narration of the current scene"),
		"choices":                list("Options offered to the player; empty when only free text input is accepted", choiceSchema),
		"imagePrompt":            str("Visual description of the scene for an illustration"),
		"isFinalScene":           boolean("True when the adventure has been won"),
		"isFailureScene":         boolean("True when the adventure has been lost"),
		"isUserInputCommandOnly": boolean("True when the player must type an action instead of choosing"),
		"itemFound": object(map[string]any{
			"name":        str("Item name"),
			"description": str("Item description"),
		}, "name"),
	}, "sceneDescription", "choices", "imagePrompt", "isFinalScene", "isFailureScene"),
	ShapeExamination: object(map[string]any{
		"examinationText": str("Closer description of the scene; no new events"),
	}, "examinationText"),
	ShapeFeasibility: object(map[string]any{
		"isPossible": boolean("Whether the action can be attempted in this scene"),
		"reason":     str("Short explanation"),
	}, "isPossible", "reason"),
}

// Schema returns the JSON schema (OpenAPI subset) describing shape. Providers
// that support structured output pass it along with the request.
func Schema(shape Shape) map[string]any {
	return schemas[shape]
}

var reminders = map[Shape]string{
	ShapeOutline: `{"title": string, "overallGoal": string, "stages": [exactly 3 of {"title": string, "description": string, "objective": string}]}`,
	ShapeWorld: `{"worldName": string, "genreClarification": string, "keyEnvironmentalFeatures": [string], ` +
		`"dominantSocietiesOrFactions": [string], "uniqueCreaturesOrMonsters": [string], "magicSystemOverview": string, ` +
		`"briefHistoryHook": string, "culturalNormsOrTaboos": [string]}`,
	ShapeSegment: `{"sceneDescription": string, "choices": [{"text": string, "outcomePrompt": string, ` +
		`"signalsStageCompletion": boolean, "leadsToFailure": boolean}], "imagePrompt": string, ` +
		`"isFinalScene": boolean, "isFailureScene": boolean, "isUserInputCommandOnly": boolean, ` +
		`"itemFound": {"name": string, "description": string} (optional)}. ` +
		`When isUserInputCommandOnly is true, choices must be an empty array.`,
	ShapeExamination: `{"examinationText": string}`,
	ShapeFeasibility: `{"isPossible": boolean, "reason": string}`,
}

// Reminder is a compact, human readable description of shape used in repair
// prompts.
func Reminder(shape Shape) string {
	return reminders[shape]
}
