package core

import (
	"strconv"
	"strings"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// AdminPrefix starts every admin button payload.
const AdminPrefix = "admin_"

// AdminAction is the verb of an admin button payload.
type AdminAction string

const (
	ActMainMenu        AdminAction = "main_menu"
	ActCancel          AdminAction = "cancel"
	ActViewStructure   AdminAction = "view_structure"
	ActEditVideo       AdminAction = "edit_video"
	ActEditLimb        AdminAction = "edit_limb"
	ActEditNav         AdminAction = "edit_nav"
	ActEditLevel       AdminAction = "edit_level"
	ActEditAction      AdminAction = "edit_action"
	ActNewSubtheme     AdminAction = "new_subtheme"
	ActAddLimb         AdminAction = "add_limb"
	ActAddNav          AdminAction = "add_nav"
	ActAddHere         AdminAction = "add_here"
	ActAddMethodFile   AdminAction = "add_method_file"
	ActAddMethodURL    AdminAction = "add_method_url"
	ActSkipVideo       AdminAction = "skip_video"
	ActSkipDescription AdminAction = "skip_description"
	ActDeleteSubtheme  AdminAction = "delete_subtheme"
	ActDeleteLimb      AdminAction = "delete_limb"
	ActDeleteNav       AdminAction = "delete_nav"
	ActDeletePick      AdminAction = "delete_pick"
	ActDeleteConfirm   AdminAction = "delete_confirm"
)

// Edit actions carried by ActEditAction.
const (
	EditFile        = "file"
	EditURL         = "url"
	EditDescription = "description"
	EditDelete      = "delete"
)

type argKind int

const (
	argNone argKind = iota
	argLimb
	argTopic
	argLevel
	argEdit
	argIndex
)

// payloadGrammar lists every action with the kind of argument it takes.
// Longer verbs sharing a prefix come first.
var payloadGrammar = []struct {
	action AdminAction
	arg    argKind
}{
	{ActMainMenu, argNone},
	{ActCancel, argNone},
	{ActViewStructure, argNone},
	{ActEditVideo, argNone},
	{ActNewSubtheme, argNone},
	{ActDeleteSubtheme, argNone},
	{ActEditLimb, argLimb},
	{ActEditNav, argTopic},
	{ActEditLevel, argLevel},
	{ActEditAction, argEdit},
	{ActAddLimb, argLimb},
	{ActAddNav, argTopic},
	{ActAddHere, argTopic},
	{ActAddMethodFile, argIndex},
	{ActAddMethodURL, argIndex},
	{ActSkipVideo, argIndex},
	{ActSkipDescription, argIndex},
	{ActDeleteLimb, argLimb},
	{ActDeleteNav, argTopic},
	{ActDeletePick, argTopic},
	{ActDeleteConfirm, argTopic},
}

// AdminPayload is a decoded admin button payload.
type AdminPayload struct {
	Action AdminAction
	Arg    string
	Index  int
}

// ParseAdminPayload decodes s. It reports false for anything outside the
// admin grammar, including arguments of the wrong kind.
func ParseAdminPayload(s string) (AdminPayload, bool) {
	rest, ok := strings.CutPrefix(s, AdminPrefix)
	if !ok {
		return AdminPayload{}, false
	}
	for _, g := range payloadGrammar {
		if g.arg == argNone {
			if rest == string(g.action) {
				return AdminPayload{Action: g.action}, true
			}
			continue
		}
		arg, ok := strings.CutPrefix(rest, string(g.action)+"_")
		if !ok || arg == "" {
			continue
		}
		p := AdminPayload{Action: g.action, Arg: arg}
		switch g.arg {
		case argLimb:
			if _, ok := models.ParseLimb(arg); !ok {
				return AdminPayload{}, false
			}
		case argLevel:
			if !models.IsLevelID(arg) {
				return AdminPayload{}, false
			}
		case argEdit:
			switch arg {
			case EditFile, EditURL, EditDescription, EditDelete:
			default:
				return AdminPayload{}, false
			}
		case argIndex:
			idx, err := strconv.Atoi(arg)
			if err != nil || idx < 0 {
				return AdminPayload{}, false
			}
			p.Arg, p.Index = "", idx
		}
		return p, true
	}
	return AdminPayload{}, false
}

// String encodes the payload back into button data.
func (p AdminPayload) String() string {
	for _, g := range payloadGrammar {
		if g.action != p.Action {
			continue
		}
		switch g.arg {
		case argNone:
			return AdminPrefix + string(p.Action)
		case argIndex:
			return AdminPrefix + string(p.Action) + "_" + strconv.Itoa(p.Index)
		}
	}
	return AdminPrefix + string(p.Action) + "_" + p.Arg
}

func adminPayload(action AdminAction, arg string) string {
	return AdminPayload{Action: action, Arg: arg}.String()
}

func adminIndexPayload(action AdminAction, idx int) string {
	return AdminPayload{Action: action, Index: idx}.String()
}

// IsAdminPayload reports whether button data belongs to the admin panel.
func IsAdminPayload(s string) bool {
	return strings.HasPrefix(s, AdminPrefix)
}
