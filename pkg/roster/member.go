package roster

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Member is one unique group member. Members are never mutated after creation.
type Member struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// rawItem and rawUser mirror one entry of a page. Every field stays raw so
// that a wrongly typed field only affects its own entry.
type rawItem struct {
	User json.RawMessage `json:"user"`
}

type rawUser struct {
	UserID      json.RawMessage `json:"userId"`
	Username    json.RawMessage `json:"username"`
	DisplayName json.RawMessage `json:"displayName"`
}

// memberFromItem builds a Member from a raw page entry.
// ok is false when the entry is not an object with a usable user identifier.
func memberFromItem(raw json.RawMessage) (Member, bool) {
	var item rawItem
	if err := json.Unmarshal(raw, &item); err != nil || len(item.User) == 0 {
		return Member{}, false
	}

	var user rawUser
	if err := json.Unmarshal(item.User, &user); err != nil {
		return Member{}, false
	}

	id, ok := parseUserID(user.UserID)
	if !ok {
		return Member{}, false
	}
	return Member{
		UserID:      id,
		Username:    textField(user.Username),
		DisplayName: textField(user.DisplayName),
	}, true
}

// textField returns the string value of raw, or "" for anything that is not a JSON string.
func textField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// parseUserID accepts a JSON integer, an integral float or a numeric string.
func parseUserID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	}

	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id, true
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
