package engine

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Action is the fixed leading token of a callback payload.
type Action string

const (
	ActionUniversity Action = "university"
	ActionFaculty    Action = "faculty"
	ActionGroup      Action = "group"
	ActionConfirmYes Action = "confirm_yes"
	ActionConfirmNo  Action = "confirm_no"

	ActionMenuSchedule    Action = "menu_schedule"
	ActionMenuAssignments Action = "menu_assignments"
	ActionMenuChatbot     Action = "menu_chatbot"
	ActionMenuProfile     Action = "menu_profile"
	ActionMenuStatus      Action = "menu_status"
	ActionMenuInfo        Action = "menu_info"
	ActionMenuBack        Action = "menu_back"
	ActionMenuCalendar    Action = "menu_calendar"

	ActionCalendarPrev     Action = "calendar_prev"
	ActionCalendarNext     Action = "calendar_next"
	ActionCalendarToday    Action = "calendar_today"
	ActionScheduleToday    Action = "schedule_today"
	ActionScheduleTomorrow Action = "schedule_tomorrow"
	ActionProfileRefresh   Action = "profile_refresh"
	ActionSubject          Action = "subject"
	ActionRestart          Action = "restart_registration"
)

// actionArity maps every routable action to its argument count. Payloads with
// a different argument count are unroutable.
var actionArity = map[Action]int{
	ActionUniversity:       2, // user id, label
	ActionFaculty:          2,
	ActionGroup:            2,
	ActionConfirmYes:       1, // user id
	ActionConfirmNo:        1,
	ActionMenuSchedule:     0,
	ActionMenuAssignments:  0,
	ActionMenuChatbot:      0,
	ActionMenuProfile:      0,
	ActionMenuStatus:       0,
	ActionMenuInfo:         0,
	ActionMenuBack:         0,
	ActionMenuCalendar:     0,
	ActionCalendarPrev:     0,
	ActionCalendarNext:     0,
	ActionCalendarToday:    0,
	ActionScheduleToday:    0,
	ActionScheduleTomorrow: 0,
	ActionProfileRefresh:   0,
	ActionSubject:          1, // subject id
	ActionRestart:          0,
}

// decodeOrder lists actions longest-first so "confirm_yes" wins over any
// shorter token sharing its prefix.
var decodeOrder = func() []Action {
	actions := make([]Action, 0, len(actionArity))
	for a := range actionArity {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool {
		if len(actions[i]) != len(actions[j]) {
			return len(actions[i]) > len(actions[j])
		}
		return actions[i] < actions[j]
	})
	return actions
}()

// escapeArg makes an argument safe to join with the '_' separator. Query
// escaping leaves '_' alone, so it is folded into %5F explicitly; the result
// contains '%' only as an escape prefix and never a literal '_'.
func escapeArg(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "_", "%5F")
}

// Encode builds a callback payload from an action and its arguments. The
// round trip through Decode is lossless for any argument content, including
// labels containing '_', '%', or spaces.
func Encode(action Action, args ...string) string {
	if len(args) == 0 {
		return string(action)
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, string(action))
	for _, arg := range args {
		parts = append(parts, escapeArg(arg))
	}
	return strings.Join(parts, "_")
}

// EncodeSelection builds a wizard selection payload carrying the acting user.
func EncodeSelection(action Action, userID int64, label string) string {
	return Encode(action, strconv.FormatInt(userID, 10), label)
}

// Decode parses a callback payload. It is total: any malformed or unknown
// payload yields ok=false, never a panic.
func Decode(payload string) (Action, []string, bool) {
	for _, action := range decodeOrder {
		arity := actionArity[action]
		token := string(action)

		if arity == 0 {
			if payload == token {
				return action, nil, true
			}
			continue
		}
		if !strings.HasPrefix(payload, token+"_") {
			continue
		}
		rest := payload[len(token)+1:]
		parts := strings.SplitN(rest, "_", arity)
		if len(parts) != arity {
			return "", nil, false
		}
		args := make([]string, 0, arity)
		for _, part := range parts {
			arg, err := url.QueryUnescape(part)
			if err != nil {
				return "", nil, false
			}
			args = append(args, arg)
		}
		return action, args, true
	}
	return "", nil, false
}

// embedsUserID reports whether the action's first argument is the acting
// user's id.
func embedsUserID(action Action) bool {
	switch action {
	case ActionUniversity, ActionFaculty, ActionGroup, ActionConfirmYes, ActionConfirmNo:
		return true
	}
	return false
}
