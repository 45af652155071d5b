package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// ErrInconsistentSegment marks a segment that asks for free text input while
// also offering choices.
var ErrInconsistentSegment = errors.New("isUserInputCommandOnly is true but choices were provided")

// shapeError is a well-formed document with missing or mistyped fields.
type shapeError struct {
	msg string
	err error
}

func (e *shapeError) Error() string { return e.msg }
func (e *shapeError) Unwrap() error { return e.err }

func shapef(format string, args ...any) error {
	return &shapeError{msg: fmt.Sprintf(format, args...)}
}

func decode(doc string, v any) error {
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return &shapeError{msg: "unexpected JSON structure: " + err.Error(), err: err}
	}
	return nil
}

func nonEmpty(field string, v *string) (string, error) {
	if v == nil {
		return "", shapef("%s is missing", field)
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return "", shapef("%s is empty", field)
	}
	return s, nil
}

func present(field string, v *[]string) ([]string, error) {
	if v == nil {
		return nil, shapef("%s must be a list", field)
	}
	return append([]string{}, (*v)...), nil
}

type wireStage struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Objective   *string `json:"objective"`
}

type wireOutline struct {
	Title       *string      `json:"title"`
	OverallGoal *string      `json:"overallGoal"`
	Stages      *[]wireStage `json:"stages"`
}

func parseOutline(doc string) (*adventure.Outline, error) {
	var w wireOutline
	if err := decode(doc, &w); err != nil {
		return nil, err
	}

	out := &adventure.Outline{}
	var err error
	if out.Title, err = nonEmpty("title", w.Title); err != nil {
		return nil, err
	}
	if out.OverallGoal, err = nonEmpty("overallGoal", w.OverallGoal); err != nil {
		return nil, err
	}
	if w.Stages == nil {
		return nil, shapef("stages is missing")
	}
	if n := len(*w.Stages); n != adventure.StageCount {
		return nil, shapef("outline must have exactly %d stages, got %d", adventure.StageCount, n)
	}

	for i, ws := range *w.Stages {
		var st adventure.Stage
		if st.Title, err = nonEmpty(fmt.Sprintf("stages[%d].title", i), ws.Title); err != nil {
			return nil, err
		}
		if st.Description, err = nonEmpty(fmt.Sprintf("stages[%d].description", i), ws.Description); err != nil {
			return nil, err
		}
		if st.Objective, err = nonEmpty(fmt.Sprintf("stages[%d].objective", i), ws.Objective); err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, st)
	}
	return out, nil
}

type wireWorld struct {
	WorldName                   *string   `json:"worldName"`
	GenreClarification          *string   `json:"genreClarification"`
	KeyEnvironmentalFeatures    *[]string `json:"keyEnvironmentalFeatures"`
	DominantSocietiesOrFactions *[]string `json:"dominantSocietiesOrFactions"`
	UniqueCreaturesOrMonsters   *[]string `json:"uniqueCreaturesOrMonsters"`
	MagicSystemOverview         *string   `json:"magicSystemOverview"`
	BriefHistoryHook            *string   `json:"briefHistoryHook"`
	CulturalNormsOrTaboos       *[]string `json:"culturalNormsOrTaboos"`
}

func parseWorld(doc string) (*adventure.WorldDetails, error) {
	var w wireWorld
	if err := decode(doc, &w); err != nil {
		return nil, err
	}

	out := &adventure.WorldDetails{}
	strs := []struct {
		name string
		in   *string
		out  *string
	}{
		{"worldName", w.WorldName, &out.WorldName},
		{"genreClarification", w.GenreClarification, &out.GenreClarification},
		{"magicSystemOverview", w.MagicSystemOverview, &out.MagicSystemOverview},
		{"briefHistoryHook", w.BriefHistoryHook, &out.BriefHistoryHook},
	}
	for _, f := range strs {
		v, err := nonEmpty(f.name, f.in)
		if err != nil {
			return nil, err
		}
		*f.out = v
	}

	lists := []struct {
		name string
		in   *[]string
		out  *[]string
	}{
		{"keyEnvironmentalFeatures", w.KeyEnvironmentalFeatures, &out.KeyEnvironmentalFeatures},
		{"dominantSocietiesOrFactions", w.DominantSocietiesOrFactions, &out.DominantSocietiesOrFactions},
		{"uniqueCreaturesOrMonsters", w.UniqueCreaturesOrMonsters, &out.UniqueCreaturesOrMonsters},
		{"culturalNormsOrTaboos", w.CulturalNormsOrTaboos, &out.CulturalNormsOrTaboos},
	}
	for _, f := range lists {
		v, err := present(f.name, f.in)
		if err != nil {
			return nil, err
		}
		*f.out = v
	}
	return out, nil
}

type wireChoice struct {
	Text                   *string `json:"text"`
	OutcomePrompt          *string `json:"outcomePrompt"`
	SignalsStageCompletion *bool   `json:"signalsStageCompletion"`
	LeadsToFailure         *bool   `json:"leadsToFailure"`
}

type wireSegment struct {
	SceneDescription       *string         `json:"sceneDescription"`
	Choices                *[]wireChoice   `json:"choices"`
	ImagePrompt            *string         `json:"imagePrompt"`
	IsFinalScene           *bool           `json:"isFinalScene"`
	IsFailureScene         *bool           `json:"isFailureScene"`
	IsUserInputCommandOnly *bool           `json:"isUserInputCommandOnly"`
	ItemFound              json.RawMessage `json:"itemFound"`
}

// droppedItem is reported when an itemFound could not be used.
type droppedItem struct {
	raw    string
	reason string
}

func parseSegment(doc string) (*adventure.StorySegment, *droppedItem, error) {
	var w wireSegment
	if err := decode(doc, &w); err != nil {
		return nil, nil, err
	}

	scene, err := nonEmpty("sceneDescription", w.SceneDescription)
	if err != nil {
		return nil, nil, err
	}
	seg := &adventure.StorySegment{
		SceneDescription:       scene,
		IsFinalScene:           w.IsFinalScene != nil && *w.IsFinalScene,
		IsFailureScene:         w.IsFailureScene != nil && *w.IsFailureScene,
		IsUserInputCommandOnly: w.IsUserInputCommandOnly != nil && *w.IsUserInputCommandOnly,
	}
	if w.ImagePrompt != nil {
		seg.ImagePrompt = strings.TrimSpace(*w.ImagePrompt)
	}

	var choices []wireChoice
	if w.Choices != nil {
		choices = *w.Choices
	}
	if seg.IsUserInputCommandOnly && len(choices) > 0 {
		return nil, nil, &shapeError{msg: ErrInconsistentSegment.Error(), err: ErrInconsistentSegment}
	}
	if !seg.IsUserInputCommandOnly && !seg.Terminal() && len(choices) == 0 {
		return nil, nil, shapef("segment offers no choices and does not accept free text input")
	}

	seg.Choices = make([]adventure.Choice, 0, len(choices))
	for i, wc := range choices {
		var c adventure.Choice
		if c.Text, err = nonEmpty(fmt.Sprintf("choices[%d].text", i), wc.Text); err != nil {
			return nil, nil, err
		}
		if wc.OutcomePrompt == nil {
			return nil, nil, shapef("choices[%d].outcomePrompt is missing", i)
		}
		c.OutcomePrompt = *wc.OutcomePrompt
		if wc.SignalsStageCompletion == nil {
			return nil, nil, shapef("choices[%d].signalsStageCompletion is missing", i)
		}
		if wc.LeadsToFailure == nil {
			return nil, nil, shapef("choices[%d].leadsToFailure is missing", i)
		}
		c.SignalsStageCompletion = *wc.SignalsStageCompletion
		c.LeadsToFailure = *wc.LeadsToFailure
		seg.Choices = append(seg.Choices, c)
	}

	item, dropped := parseItem(w.ItemFound)
	seg.ItemFound = item
	return seg, dropped, nil
}

func parseItem(raw json.RawMessage) (*adventure.ItemFound, *droppedItem) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var w struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &droppedItem{raw: trimmed, reason: err.Error()}
	}
	if w.Name == nil || strings.TrimSpace(*w.Name) == "" {
		return nil, &droppedItem{raw: trimmed, reason: "item name is missing"}
	}
	item := &adventure.ItemFound{Name: strings.TrimSpace(*w.Name)}
	if w.Description != nil {
		item.Description = strings.TrimSpace(*w.Description)
	}
	return item, nil
}

func parseExamination(doc string) (string, error) {
	var w struct {
		ExaminationText *string `json:"examinationText"`
	}
	if err := decode(doc, &w); err != nil {
		return "", err
	}
	return nonEmpty("examinationText", w.ExaminationText)
}

func parseFeasibility(doc string) (*adventure.Feasibility, error) {
	var w struct {
		IsPossible *bool   `json:"isPossible"`
		Reason     *string `json:"reason"`
	}
	if err := decode(doc, &w); err != nil {
		return nil, err
	}
	if w.IsPossible == nil {
		return nil, shapef("isPossible is missing")
	}
	f := &adventure.Feasibility{IsPossible: *w.IsPossible}
	if w.Reason != nil {
		f.Reason = strings.TrimSpace(*w.Reason)
	}
	return f, nil
}
