package core

import (
	"encoding/json"
	"fmt"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// WizardMode tags the current step of an admin flow.
type WizardMode string

const (
	ModeMainMenu             WizardMode = "main_menu"
	ModeEditChooseLimb       WizardMode = "edit_choose_limb"
	ModeEditNavigate         WizardMode = "edit_navigate"
	ModeEditChooseLevel      WizardMode = "edit_choose_level"
	ModeEditChooseAction     WizardMode = "edit_choose_action"
	ModeEditAwaitFile        WizardMode = "edit_await_file"
	ModeEditAwaitURL         WizardMode = "edit_await_url"
	ModeEditAwaitDescription WizardMode = "edit_await_description"
	ModeCreateChooseLimb     WizardMode = "create_choose_limb"
	ModeCreateChooseParent   WizardMode = "create_choose_parent"
	ModeCreateEnterTitle     WizardMode = "create_enter_title"
	ModeCreateChooseMethod   WizardMode = "create_choose_method"
	ModeCreateAwaitFile      WizardMode = "create_await_file"
	ModeCreateAwaitURL       WizardMode = "create_await_url"
	ModeCreateAwaitDesc      WizardMode = "create_await_description"
	ModeDeleteChooseLimb     WizardMode = "delete_choose_limb"
	ModeDeleteNavigate       WizardMode = "delete_navigate"
	ModeDeleteConfirm        WizardMode = "delete_confirm"
)

// WizardStep is one admin flow step. Each mode has its own type carrying
// only the fields that step needs.
type WizardStep interface {
	Mode() WizardMode
}

// EditTarget identifies the content slot being edited.
type EditTarget struct {
	Limb    models.Limb `json:"limb"`
	TopicID string      `json:"topic_id"`
	Level   string      `json:"level"`
}

// NewTopicDraft accumulates a topic being created.
type NewTopicDraft struct {
	Limb         models.Limb       `json:"limb"`
	ParentID     string            `json:"parent_id"`
	Title        string            `json:"title"`
	Videos       map[string]string `json:"videos,omitempty"`
	Files        map[string]string `json:"files,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// DraftCursor is a draft plus the index of the amputation level being filled.
type DraftCursor struct {
	Draft NewTopicDraft `json:"draft"`
	Index int           `json:"index"`
}

// Level returns the catalog level the cursor points at.
func (c DraftCursor) Level() (models.AmputationLevel, bool) {
	return models.LevelByIndex(c.Index)
}

type (
	MainMenu struct{}

	EditChooseLimb struct{}

	EditNavigate struct {
		Limb models.Limb `json:"limb"`
		Path []string    `json:"path"`
	}

	EditChooseLevel struct {
		Limb    models.Limb `json:"limb"`
		TopicID string      `json:"topic_id"`
	}

	EditChooseAction struct{ EditTarget }

	EditAwaitFile struct{ EditTarget }

	EditAwaitURL struct{ EditTarget }

	EditAwaitDescription struct{ EditTarget }

	CreateChooseLimb struct{}

	CreateChooseParent struct {
		Limb models.Limb `json:"limb"`
		Path []string    `json:"path"`
	}

	CreateEnterTitle struct {
		Limb     models.Limb `json:"limb"`
		ParentID string      `json:"parent_id"`
	}

	CreateChooseMethod struct{ DraftCursor }

	CreateAwaitFile struct{ DraftCursor }

	CreateAwaitURL struct{ DraftCursor }

	CreateAwaitDescription struct{ DraftCursor }

	DeleteChooseLimb struct{}

	DeleteNavigate struct {
		Limb models.Limb `json:"limb"`
		Path []string    `json:"path"`
	}

	DeleteConfirm struct {
		Limb    models.Limb `json:"limb"`
		TopicID string      `json:"topic_id"`
	}
)

func (MainMenu) Mode() WizardMode               { return ModeMainMenu }
func (EditChooseLimb) Mode() WizardMode         { return ModeEditChooseLimb }
func (EditNavigate) Mode() WizardMode           { return ModeEditNavigate }
func (EditChooseLevel) Mode() WizardMode        { return ModeEditChooseLevel }
func (EditChooseAction) Mode() WizardMode       { return ModeEditChooseAction }
func (EditAwaitFile) Mode() WizardMode          { return ModeEditAwaitFile }
func (EditAwaitURL) Mode() WizardMode           { return ModeEditAwaitURL }
func (EditAwaitDescription) Mode() WizardMode   { return ModeEditAwaitDescription }
func (CreateChooseLimb) Mode() WizardMode       { return ModeCreateChooseLimb }
func (CreateChooseParent) Mode() WizardMode     { return ModeCreateChooseParent }
func (CreateEnterTitle) Mode() WizardMode       { return ModeCreateEnterTitle }
func (CreateChooseMethod) Mode() WizardMode     { return ModeCreateChooseMethod }
func (CreateAwaitFile) Mode() WizardMode        { return ModeCreateAwaitFile }
func (CreateAwaitURL) Mode() WizardMode         { return ModeCreateAwaitURL }
func (CreateAwaitDescription) Mode() WizardMode { return ModeCreateAwaitDesc }
func (DeleteChooseLimb) Mode() WizardMode       { return ModeDeleteChooseLimb }
func (DeleteNavigate) Mode() WizardMode         { return ModeDeleteNavigate }
func (DeleteConfirm) Mode() WizardMode          { return ModeDeleteConfirm }

// AdminSession is one chat's admin wizard state. A nil Step is the idle
// main menu.
type AdminSession struct {
	Step WizardStep
}

// Mode returns the current mode, ModeMainMenu when idle.
func (s AdminSession) Mode() WizardMode {
	if s.Step == nil {
		return ModeMainMenu
	}
	return s.Step.Mode()
}

type sessionEnvelope struct {
	Mode WizardMode      `json:"mode"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the session as {"mode": ..., "data": {...}}.
func (s AdminSession) MarshalJSON() ([]byte, error) {
	step := s.Step
	if step == nil {
		step = MainMenu{}
	}
	data, err := json.Marshal(step)
	if err != nil {
		return nil, fmt.Errorf("encoding %s step: %w", step.Mode(), err)
	}
	return json.Marshal(sessionEnvelope{Mode: step.Mode(), Data: data})
}

// UnmarshalJSON decodes the envelope written by MarshalJSON.
func (s *AdminSession) UnmarshalJSON(b []byte) error {
	var env sessionEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("decoding admin session: %w", err)
	}
	step, err := decodeStep(env.Mode, env.Data)
	if err != nil {
		return err
	}
	s.Step = step
	return nil
}

func decodeStep(mode WizardMode, data json.RawMessage) (WizardStep, error) {
	switch mode {
	case ModeMainMenu, "":
		return decodeAs[MainMenu](data)
	case ModeEditChooseLimb:
		return decodeAs[EditChooseLimb](data)
	case ModeEditNavigate:
		return decodeAs[EditNavigate](data)
	case ModeEditChooseLevel:
		return decodeAs[EditChooseLevel](data)
	case ModeEditChooseAction:
		return decodeAs[EditChooseAction](data)
	case ModeEditAwaitFile:
		return decodeAs[EditAwaitFile](data)
	case ModeEditAwaitURL:
		return decodeAs[EditAwaitURL](data)
	case ModeEditAwaitDescription:
		return decodeAs[EditAwaitDescription](data)
	case ModeCreateChooseLimb:
		return decodeAs[CreateChooseLimb](data)
	case ModeCreateChooseParent:
		return decodeAs[CreateChooseParent](data)
	case ModeCreateEnterTitle:
		return decodeAs[CreateEnterTitle](data)
	case ModeCreateChooseMethod:
		return decodeAs[CreateChooseMethod](data)
	case ModeCreateAwaitFile:
		return decodeAs[CreateAwaitFile](data)
	case ModeCreateAwaitURL:
		return decodeAs[CreateAwaitURL](data)
	case ModeCreateAwaitDesc:
		return decodeAs[CreateAwaitDescription](data)
	case ModeDeleteChooseLimb:
		return decodeAs[DeleteChooseLimb](data)
	case ModeDeleteNavigate:
		return decodeAs[DeleteNavigate](data)
	case ModeDeleteConfirm:
		return decodeAs[DeleteConfirm](data)
	}
	return nil, fmt.Errorf("unknown wizard mode %q", mode)
}

func decodeAs[T WizardStep](data json.RawMessage) (WizardStep, error) {
	var step T
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, fmt.Errorf("decoding %s step: %w", step.Mode(), err)
		}
	}
	return step, nil
}
