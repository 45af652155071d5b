package persistence

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// ValidationError lists every problem found in a stored snapshot.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid snapshot: " + strings.Join(e.Problems, "; ")
}

type checker struct {
	problems []string
}

func (c *checker) failf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *checker) str(parent gjson.Result, path, at string) gjson.Result {
	r := parent.Get(path)
	if r.Type != gjson.String {
		c.failf("%s%s must be a string", at, path)
	}
	return r
}

func (c *checker) nonEmpty(parent gjson.Result, path, at string) {
	if r := c.str(parent, path, at); r.Type == gjson.String && strings.TrimSpace(r.Str) == "" {
		c.failf("%s%s must not be empty", at, path)
	}
}

func (c *checker) boolean(parent gjson.Result, path, at string) {
	r := parent.Get(path)
	if r.Type != gjson.True && r.Type != gjson.False {
		c.failf("%s%s must be a boolean", at, path)
	}
}

func (c *checker) array(parent gjson.Result, path, at string) []gjson.Result {
	r := parent.Get(path)
	if !r.IsArray() {
		c.failf("%s%s must be an array", at, path)
		return nil
	}
	return r.Array()
}

func (c *checker) object(parent gjson.Result, path, at string) (gjson.Result, bool) {
	r := parent.Get(path)
	if !r.IsObject() {
		c.failf("%s%s must be an object", at, path)
		return r, false
	}
	return r, true
}

func (c *checker) stringArray(parent gjson.Result, path, at string) {
	for i, item := range c.array(parent, path, at) {
		if item.Type != gjson.String {
			c.failf("%s%s[%d] must be a string", at, path, i)
		}
	}
}

// Validate checks that a stored snapshot has every required field with the
// right primitive shape. It does not decode the document.
func Validate(data []byte) error {
	if !gjson.ValidBytes(data) {
		return &ValidationError{Problems: []string{"not valid JSON"}}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return &ValidationError{Problems: []string{"snapshot must be an object"}}
	}

	c := &checker{}

	if g := c.str(root, "selectedGenre", ""); g.Type == gjson.String && !adventure.Genre(g.Str).Valid() {
		c.failf("selectedGenre %q is unknown", g.Str)
	}
	if p := c.str(root, "selectedPersona", ""); p.Type == gjson.String && !adventure.Persona(p.Str).Valid() {
		c.failf("selectedPersona %q is unknown", p.Str)
	}

	if outline, ok := c.object(root, "adventureOutline", ""); ok {
		c.nonEmpty(outline, "title", "adventureOutline.")
		c.nonEmpty(outline, "overallGoal", "adventureOutline.")
		stages := c.array(outline, "stages", "adventureOutline.")
		if stages != nil && len(stages) != adventure.StageCount {
			c.failf("adventureOutline.stages must have %d entries, got %d", adventure.StageCount, len(stages))
		}
		for i, st := range stages {
			at := fmt.Sprintf("adventureOutline.stages[%d].", i)
			c.nonEmpty(st, "title", at)
			c.nonEmpty(st, "description", at)
			c.nonEmpty(st, "objective", at)
		}
	}

	if world, ok := c.object(root, "worldDetails", ""); ok {
		for _, f := range []string{"worldName", "genreClarification", "magicSystemOverview", "briefHistoryHook"} {
			c.nonEmpty(world, f, "worldDetails.")
		}
		for _, f := range []string{"keyEnvironmentalFeatures", "dominantSocietiesOrFactions", "uniqueCreaturesOrMonsters", "culturalNormsOrTaboos"} {
			c.stringArray(world, f, "worldDetails.")
		}
	}

	if seg, ok := c.object(root, "currentSegment", ""); ok {
		c.nonEmpty(seg, "sceneDescription", "currentSegment.")
		c.str(seg, "imagePrompt", "currentSegment.")
		c.boolean(seg, "isFinalScene", "currentSegment.")
		c.boolean(seg, "isFailureScene", "currentSegment.")
		c.boolean(seg, "isUserInputCommandOnly", "currentSegment.")
		for i, ch := range c.array(seg, "choices", "currentSegment.") {
			at := fmt.Sprintf("currentSegment.choices[%d].", i)
			c.str(ch, "text", at)
			c.str(ch, "outcomePrompt", at)
			c.boolean(ch, "signalsStageCompletion", at)
			c.boolean(ch, "leadsToFailure", at)
		}
		if url := seg.Get("imageUrl"); url.Exists() && url.Type != gjson.String {
			c.failf("currentSegment.imageUrl must be a string")
		}
		if item := seg.Get("itemFound"); item.Exists() && item.Type != gjson.Null {
			if _, ok := c.object(seg, "itemFound", "currentSegment."); ok {
				c.str(item, "name", "currentSegment.itemFound.")
			}
		}
	}

	idx := root.Get("currentStageIndex")
	switch {
	case idx.Type != gjson.Number:
		c.failf("currentStageIndex must be a number")
	case idx.Num != float64(int(idx.Num)) || idx.Int() < 0 || idx.Int() >= adventure.StageCount:
		c.failf("currentStageIndex %v is out of range", idx.Num)
	}

	for i, item := range c.array(root, "inventory", "") {
		at := fmt.Sprintf("inventory[%d].", i)
		c.nonEmpty(item, "id", at)
		c.str(item, "name", at)
		c.str(item, "description", at)
	}
	for i, entry := range c.array(root, "journal", "") {
		at := fmt.Sprintf("journal[%d].", i)
		c.nonEmpty(entry, "type", at)
		c.str(entry, "content", at)
		c.str(entry, "timestamp", at)
	}

	c.boolean(root, "isGameEnded", "")
	c.boolean(root, "isGameFailed", "")
	c.boolean(root, "imageGenerationPermanentlyDisabled", "")

	if len(c.problems) > 0 {
		return &ValidationError{Problems: c.problems}
	}
	return nil
}
