package automaton

// Definition is the configuration shape of an automaton.
// It uses "mapstructure" tags so the same struct decodes JSON and YAML documents.
type Definition struct {
	ID             string            `json:"automatonId" mapstructure:"automatonId"`
	Name           string            `json:"name" mapstructure:"name"`
	Version        string            `json:"version" mapstructure:"version"`
	Description    string            `json:"description,omitempty" mapstructure:"description"`
	InitialStateID string            `json:"initialStateId" mapstructure:"initialStateId"`
	States         []StateDef        `json:"states" mapstructure:"states"`
	Transitions    []TransitionDef   `json:"transitions" mapstructure:"transitions"`
	FinalStateIDs  []string          `json:"finalStateIds,omitempty" mapstructure:"finalStateIds"`
	Metadata       map[string]string `json:"metadata,omitempty" mapstructure:"metadata"`
}

// StateDef describes one screen.
type StateDef struct {
	ID                string          `json:"stateId" mapstructure:"stateId"`
	Label             string          `json:"label,omitempty" mapstructure:"label"`
	Description       string          `json:"description,omitempty" mapstructure:"description"`
	Type              string          `json:"stateType,omitempty" mapstructure:"stateType"`
	DisplayMessage    string          `json:"displayMessage" mapstructure:"displayMessage"`
	ValidationType    string          `json:"validationType,omitempty" mapstructure:"validationType"`
	BusinessMethod    string          `json:"businessServiceMethod,omitempty" mapstructure:"businessServiceMethod"`
	ContextStorageKey string          `json:"contextStorageKey,omitempty" mapstructure:"contextStorageKey"`
	TerminatesSession bool            `json:"terminatesSession,omitempty" mapstructure:"terminatesSession"`
	MenuOptions       []MenuOptionDef `json:"menuOptions,omitempty" mapstructure:"menuOptions"`
}

// MenuOptionDef is a numbered menu entry.
type MenuOptionDef struct {
	Key     string `json:"optionKey" mapstructure:"optionKey"`
	Text    string `json:"optionText" mapstructure:"optionText"`
	Trigger string `json:"transitionTrigger,omitempty" mapstructure:"transitionTrigger"`
}

// TransitionDef describes an edge between two states.
type TransitionDef struct {
	From               string   `json:"fromStateId" mapstructure:"fromStateId"`
	To                 string   `json:"toStateId" mapstructure:"toStateId"`
	Trigger            string   `json:"trigger" mapstructure:"trigger"`
	Priority           int      `json:"priority,omitempty" mapstructure:"priority"`
	RequiresValidation bool     `json:"requiresValidation,omitempty" mapstructure:"requiresValidation"`
	ValidationType     string   `json:"validationType,omitempty" mapstructure:"validationType"`
	GuardConditions    []string `json:"guardConditions,omitempty" mapstructure:"guardConditions"`
	Actions            []string `json:"actions,omitempty" mapstructure:"actions"`
	IsError            bool     `json:"isErrorTransition,omitempty" mapstructure:"isErrorTransition"`
	IsFallback         bool     `json:"isFallbackTransition,omitempty" mapstructure:"isFallbackTransition"`
	ErrorMessage       string   `json:"errorMessage,omitempty" mapstructure:"errorMessage"`
	MaxRetries         *int     `json:"maxRetries,omitempty" mapstructure:"maxRetries"`
	Label              string   `json:"label,omitempty" mapstructure:"label"`
	Description        string   `json:"description,omitempty" mapstructure:"description"`
}
