package adventure

// Choice is one option offered to the player at the end of a scene.
type Choice struct {
	Text                   string `json:"text"`
	OutcomePrompt          string `json:"outcomePrompt"`
	SignalsStageCompletion bool   `json:"signalsStageCompletion"`
	LeadsToFailure         bool   `json:"leadsToFailure"`
}

// AdvancesStage reports whether picking this choice completes the current
// stage. A choice that leads to failure never completes a stage.
func (c Choice) AdvancesStage() bool {
	return c.SignalsStageCompletion && !c.LeadsToFailure
}

// ItemFound is an item the player picked up during a scene.
type ItemFound struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StorySegment is one rendered scene plus its choices and image.
type StorySegment struct {
	SceneDescription       string     `json:"sceneDescription"`
	Choices                []Choice   `json:"choices"`
	ImagePrompt            string     `json:"imagePrompt"`
	ImageURL               string     `json:"imageUrl,omitempty"`
	IsFinalScene           bool       `json:"isFinalScene"`
	IsFailureScene         bool       `json:"isFailureScene"`
	IsUserInputCommandOnly bool       `json:"isUserInputCommandOnly"`
	ItemFound              *ItemFound `json:"itemFound,omitempty"`
}

// Terminal reports whether the segment ends the adventure.
func (s *StorySegment) Terminal() bool {
	return s != nil && (s.IsFinalScene || s.IsFailureScene)
}

// Clone returns a deep copy of the segment.
func (s *StorySegment) Clone() *StorySegment {
	if s == nil {
		return nil
	}
	c := *s
	if s.Choices != nil {
		c.Choices = make([]Choice, len(s.Choices))
		copy(c.Choices, s.Choices)
	}
	if s.ItemFound != nil {
		item := *s.ItemFound
		c.ItemFound = &item
	}
	return &c
}

// Feasibility is the verdict of the optional pre-check on a free-text action.
type Feasibility struct {
	IsPossible bool   `json:"isPossible"`
	Reason     string `json:"reason"`
}
